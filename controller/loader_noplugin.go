//go:build !modelplugin

package controller

import "github.com/dsebus/dsebus/dsebuserr"

// loadPlugin without the modelplugin build tag: dynamically loaded model
// shared objects aren't available on this build; callers needing them must
// rebuild with -tags modelplugin. Built-in kinds (gateway, mcl) are
// unaffected since they never reach this path.
func loadPlugin(path string) (*Model, error) {
	return nil, dsebuserr.NewConfigError(
		"model plugin %q requires building with -tags modelplugin", path)
}
