package gotrue

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
)

// MetadataPaths are JMESPath expressions evaluated against a user's user_metadata to fill
// the profile name fields. OAuth providers disagree on claim names, hence the fallbacks.
type MetadataPaths struct {
	FirstName string
	LastName  string
	Company   string
	AvatarURL string
}

// DefaultMetadataPaths covers the signup form plus the common Google and Azure claim names.
func DefaultMetadataPaths() MetadataPaths {
	return MetadataPaths{
		FirstName: "first_name || given_name",
		LastName:  "last_name || family_name || surname",
		Company:   "company || organization",
		AvatarURL: "avatar_url || picture",
	}
}

type metadataExtractor struct {
	paths MetadataPaths
}

func newMetadataExtractor(paths MetadataPaths) (metadataExtractor, error) {
	if paths == (MetadataPaths{}) {
		paths = DefaultMetadataPaths()
	}
	for name, expr := range map[string]string{
		"first_name": paths.FirstName,
		"last_name":  paths.LastName,
		"company":    paths.Company,
		"avatar_url": paths.AvatarURL,
	} {
		if expr == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return metadataExtractor{}, fmt.Errorf("metadata path %s: %w", name, err)
		}
	}
	return metadataExtractor{paths: paths}, nil
}

// Extract reads the name fields out of raw user metadata. Missing or non-string values
// leave the field empty.
func (m metadataExtractor) Extract(raw map[string]any) domainauth.UserMetadata {
	if len(raw) == 0 {
		return domainauth.UserMetadata{}
	}
	return domainauth.UserMetadata{
		FirstName: searchString(m.paths.FirstName, raw),
		LastName:  searchString(m.paths.LastName, raw),
		Company:   searchString(m.paths.Company, raw),
		AvatarURL: searchString(m.paths.AvatarURL, raw),
	}
}

func searchString(expr string, data map[string]any) string {
	if expr == "" {
		return ""
	}
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// metadataPayload is what signup sends as the user's data object.
func metadataPayload(m domainauth.UserMetadata) map[string]any {
	out := map[string]any{}
	if m.FirstName != "" {
		out["first_name"] = m.FirstName
	}
	if m.LastName != "" {
		out["last_name"] = m.LastName
	}
	if m.Company != "" {
		out["company"] = m.Company
	}
	if m.AvatarURL != "" {
		out["avatar_url"] = m.AvatarURL
	}
	return out
}
