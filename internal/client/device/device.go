// Package device resolves a stable identity for the machine running the
// client: a persisted random id plus a human-readable label.
package device

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"

	"github.com/avoronov/pasteboard/internal/client/state"
)

// Info labels entries saved from this machine.
type Info struct {
	Id   string
	Name string
}

// Resolve loads the persisted device id, generating and storing one on first
// run. The label is the override when set, otherwise "hostname (Platform)".
func Resolve(ctx context.Context, st state.Store, override string) (Info, error) {
	id, err := st.Get(ctx, state.KeyDeviceID)
	if err != nil {
		return Info{}, fmt.Errorf("failed to load device id: %w", err)
	}
	if len(id) == 0 {
		id = []byte(uuid.NewString())
		if err := st.Set(ctx, state.KeyDeviceID, id); err != nil {
			return Info{}, fmt.Errorf("failed to store device id: %w", err)
		}
	}

	name := override
	if name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		name = fmt.Sprintf("%s (%s)", host, platformName(runtime.GOOS))
	}

	return Info{Id: string(id), Name: name}, nil
}

func platformName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return goos
	}
}
