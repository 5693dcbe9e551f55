package boot

import (
	"os"

	"github.com/nce-project/nce/launcherr"
	"github.com/nce-project/nce/lift"
)

// Inspect serializes the current executable's jump and lift manifest
// to stdout, pretty-printed exactly as it would be re-packed, letting
// a developer see the manifest this scie actually carries.
func Inspect(loaded *Loaded) (int, error) {
	body, err := (&lift.Formatter{Pretty: true, TrailingNewline: true}).Format(loaded.Manifest)
	if err != nil {
		return 1, launcherr.Wrap(launcherr.InvalidManifest, err, "failed to serialize %s's manifest", loaded.Path)
	}
	if _, err := os.Stdout.Write(body); err != nil {
		return 1, launcherr.Wrap(launcherr.IOError, err, "failed to write manifest to stdout")
	}
	return 0, nil
}
