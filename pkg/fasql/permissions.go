package fasql

import "sync"

var (
	// DefaultPermissions maps each permission to the lowest rank that has it when the permissions table
	// doesn't say otherwise
	DefaultPermissions = map[string]int{
		"admin_forum":        AdminPerms,
		"manage_attachments": AdminPerms,
		"manage_smileys":     AdminPerms,
		"manage_permissions": AdminPerms,
		"access_mod_center":  ModPerms,
		"moderate_forum":     ModPerms,
		"calendar_view":      NoPerms,
		"calendar_post":      JanitorPerms,
		"calendar_edit_own":  JanitorPerms,
		"calendar_edit_any":  ModPerms,
	}

	// ConfigurableRanks are the ranks whose permissions can be changed. Administrators always have every permission
	ConfigurableRanks = []int{NoPerms, JanitorPerms, ModPerms}

	permissionOverrides map[string]map[int]bool
	permissionsMutex    sync.RWMutex
)

// LoadPermissions reads the permissions table into memory
func LoadPermissions(opts *RequestOptions) error {
	rows, err := Query(opts, `SELECT staff_rank, permission, add_deny FROM DBPREFIXpermissions`)
	if err != nil {
		return err
	}
	defer rows.Close()
	overrides := map[string]map[int]bool{}
	for rows.Next() {
		var rank, addDeny int
		var permission string
		if err = rows.Scan(&rank, &permission, &addDeny); err != nil {
			return err
		}
		if overrides[permission] == nil {
			overrides[permission] = map[int]bool{}
		}
		overrides[permission][rank] = addDeny > 0
	}
	if err = rows.Err(); err != nil {
		return err
	}
	permissionsMutex.Lock()
	permissionOverrides = overrides
	permissionsMutex.Unlock()
	return nil
}

// IsAllowedTo returns true if staff with the given rank have the permission
func IsAllowedTo(rank int, permission string) bool {
	if rank >= AdminPerms {
		return true
	}
	permissionsMutex.RLock()
	allowed, ok := permissionOverrides[permission][rank]
	permissionsMutex.RUnlock()
	if ok {
		return allowed
	}
	minRank, ok := DefaultPermissions[permission]
	return ok && rank >= minRank
}

// RanksAllowed returns the configurable ranks that currently have the permission, in ascending order
func RanksAllowed(permission string) []int {
	var ranks []int
	for _, rank := range ConfigurableRanks {
		if IsAllowedTo(rank, permission) {
			ranks = append(ranks, rank)
		}
	}
	return ranks
}

// SetPermissionRanks makes the given ranks the only configurable ranks that have the permission
func SetPermissionRanks(opts *RequestOptions, permission string, ranks []int) (err error) {
	allowed := map[int]bool{}
	for _, rank := range ranks {
		allowed[rank] = true
	}

	tx := optsTx(opts)
	ownTx := tx == nil
	if ownTx {
		if tx, err = BeginContextTx(optsContext(opts)); err != nil {
			return err
		}
		defer tx.Rollback()
	}
	txOpts := optsWithTx(opts, tx)
	if _, err = Exec(txOpts, `DELETE FROM DBPREFIXpermissions WHERE permission = ?`, permission); err != nil {
		return err
	}
	for _, rank := range ConfigurableRanks {
		addDeny := 0
		if allowed[rank] {
			addDeny = 1
		}
		if _, err = Exec(txOpts, `INSERT INTO DBPREFIXpermissions (staff_rank, permission, add_deny) VALUES(?,?,?)`,
			rank, permission, addDeny); err != nil {
			return err
		}
	}
	if ownTx {
		if err = tx.Commit(); err != nil {
			return err
		}
	}

	permissionsMutex.Lock()
	if permissionOverrides == nil {
		permissionOverrides = map[string]map[int]bool{}
	}
	permissionOverrides[permission] = map[int]bool{}
	for _, rank := range ConfigurableRanks {
		permissionOverrides[permission][rank] = allowed[rank]
	}
	permissionsMutex.Unlock()
	return nil
}

// ResetPermissions discards the in-memory permission overrides so that only the defaults apply
func ResetPermissions() {
	permissionsMutex.Lock()
	permissionOverrides = nil
	permissionsMutex.Unlock()
}
