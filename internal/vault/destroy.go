package vault

import (
	"os"

	"github.com/cryptvault/cryptvault/internal/secmem"
)

// Destroy double-confirms with the user, authenticates, then removes the
// entire storage directory tree. os.RemoveAll already implements exactly
// the traversal spec.md §4.6 describes (files and symlinks unlinked
// directly, directories walked physically with children removed before
// parents), so destroy does not reimplement it.
func (v *Vault) Destroy() error {
	confirmed1, err := v.ui.ReadYesNo("This will permanently delete all items. Continue?", false)
	if err != nil {
		return internalError("read confirmation", err)
	}
	if !confirmed1 {
		return nil
	}

	confirmed2, err := v.ui.ReadYesNo("Are you absolutely sure?", false)
	if err != nil {
		return internalError("read confirmation", err)
	}
	if !confirmed2 {
		return nil
	}

	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	secmem.Zeroize(auth.Passphrase)

	if err := os.RemoveAll(v.paths.StorageDir); err != nil {
		return internalError("remove storage directory", err)
	}
	return nil
}
