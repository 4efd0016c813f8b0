package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// userStore is the profile surface the user commands need. *data.ProfileRepo satisfies it.
type userStore interface {
	FindByEmails(ctx context.Context, emails []string) ([]*domainauth.Profile, error)
	List(ctx context.Context, opts domainauth.ListProfilesOptions) ([]*domainauth.Profile, error)
	CountByRole(ctx context.Context) (domainauth.RoleCounts, error)
	ChangeRole(ctx context.Context, actorID, id string, role domainauth.Role) (*domainauth.Profile, error)
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set-role <email> <role>")
	}
	email := domainauth.NormalizeEmail(args[0])
	role := domainauth.Role(strings.ToLower(strings.TrimSpace(args[1])))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (valid: %s)", args[1], validRoleNames())
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *database) error {
		p, err := setRole(ctx, db.Profiles, email, role)
		if err != nil {
			return err
		}
		cmdCtx.Logger.InfoContext(ctx, "role updated", "profile_id", p.ID, "role", p.Role)
		return writef(cmdCtx.Out, "%s is now %s\n", p.Email, p.Role)
	})
}

// setRole looks the profile up by email and changes its role. The CLI has no acting user,
// so the audit row's actor is empty.
func setRole(ctx context.Context, store userStore, email string, role domainauth.Role) (*domainauth.Profile, error) {
	found, err := store.FindByEmails(ctx, []string{email})
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no profile for %s; the user must sign in once first", email)
	}
	p, err := store.ChangeRole(ctx, "", found[0].ID, role)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	return p, nil
}

func validRoleNames() string {
	names := make([]string, 0, len(domainauth.Roles))
	for _, r := range domainauth.Roles {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

type listUsersOptions struct {
	Role   string
	Search string
	Limit  int
	Offset int
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts listUsersOptions
	fs.StringVar(&opts.Role, "role", "", "Only list users with this role")
	fs.StringVar(&opts.Search, "search", "", "Filter by email or name substring")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to print")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}
	opts.Role = strings.ToLower(strings.TrimSpace(opts.Role))
	if opts.Role != "" && !domainauth.Role(opts.Role).Valid() {
		return listUsersOptions{}, fmt.Errorf("unknown role %q (valid: %s)", opts.Role, validRoleNames())
	}
	if opts.Limit <= 0 {
		return listUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listUsersOptions{}, errors.New("--offset must not be negative")
	}
	return opts, nil
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *database) error {
		return listUsers(ctx, db.Profiles, cmdCtx.Out, opts)
	})
}

func listUsers(ctx context.Context, store userStore, out io.Writer, opts listUsersOptions) error {
	users, err := store.List(ctx, domainauth.ListProfilesOptions{
		Role:   domainauth.Role(opts.Role),
		Search: opts.Search,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if len(users) == 0 {
		return writeln(out, "No users found.")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tEmail\tRole\tName\tCompany\tCreated"); err != nil {
		return fmt.Errorf("write user header: %w", err)
	}
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, u.Role, dash(name), dash(u.Company), u.CreatedAt.UTC().Format("2006-01-02")); err != nil {
			return fmt.Errorf("write user %s: %w", u.ID, err)
		}
	}
	return w.Flush()
}

func runStats(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *database) error {
		return printStats(ctx, db.Profiles, cmdCtx.Out)
	})
}

func printStats(ctx context.Context, store userStore, out io.Writer) error {
	counts, err := store.CountByRole(ctx)
	if err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	stats := domainauth.StatsFromCounts(counts)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Metric\tValue"); err != nil {
		return fmt.Errorf("write stats header: %w", err)
	}
	if err := writef(w, "Total\t%d\nVendors\t%d\nAdmins\t%d\n", stats.Total, stats.Vendors, stats.Admins); err != nil {
		return fmt.Errorf("write stats totals: %w", err)
	}

	roles := make([]string, 0, len(counts))
	for r := range counts {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		if err := writef(w, "  %s\t%d\n", r, counts[domainauth.Role(r)]); err != nil {
			return fmt.Errorf("write role %s: %w", r, err)
		}
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
