package ports_test

import (
	"testing"

	"github.com/target/compliance-gate/internal/adapters/devauth"
	"github.com/target/compliance-gate/internal/adapters/gotrue"
	redisadapter "github.com/target/compliance-gate/internal/adapters/redis"
	"github.com/target/compliance-gate/internal/data"
	"github.com/target/compliance-gate/internal/mocks"
	fakes "github.com/target/compliance-gate/internal/mocks/auth"
	"github.com/target/compliance-gate/internal/ports"
)

// This test only verifies that our mocks and adapters conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.SessionClient = (*mocks.MockSessionClient)(nil)
	var _ ports.SessionClient = (*devauth.Provider)(nil)
	var _ ports.SessionClient = (*gotrue.Client)(nil)
	var _ ports.SessionStore = (*redisadapter.SessionStore)(nil)
	var _ ports.PreferenceStore = (*redisadapter.PreferenceStore)(nil)
	var _ ports.ProfileStore = (*mocks.MockProfileStore)(nil)
	var _ ports.ProfileStore = (*data.ProfileRepo)(nil)
	var _ ports.ProfileAdminStore = (*data.ProfileRepo)(nil)
	var _ ports.SessionStore = (*fakes.MemorySessionStore)(nil)
	var _ ports.PreferenceStore = (*fakes.MemoryPreferenceStore)(nil)
	var _ ports.ProfileStore = (*fakes.MemoryProfileStore)(nil)
}
