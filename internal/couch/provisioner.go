package couch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/util"
)

// Provisioner holds the privileged CouchDB credential. It owns the
// account/database lifecycle and the minting of scoped session users.
// Request handlers never see it; they only receive a Store built from
// credentials the Provisioner minted.
type Provisioner struct {
	couchURL string
	client   *kivik.Client
}

func NewProvisioner(couchURL, adminUser, adminPassword string) (*Provisioner, error) {
	client, err := dial(couchURL, adminUser, adminPassword)
	if err != nil {
		return nil, err
	}
	return &Provisioner{couchURL: couchURL, client: client}, nil
}

// Ping verifies the admin credential and server reachability.
func (p *Provisioner) Ping(ctx context.Context) error {
	if _, err := p.client.AllDBs(ctx); err != nil {
		return mapError(err, "couchdb")
	}
	return nil
}

// AccountExists reports whether an account database exists.
func (p *Provisioner) AccountExists(ctx context.Context, account string) (bool, error) {
	exists, err := p.client.DBExists(ctx, DatabaseName(account))
	if err != nil {
		return false, mapError(err, "account")
	}
	return exists, nil
}

// CreateAccount provisions an isolated database plus a CouchDB user whose
// membership is limited to that database. Password hashing is delegated
// to CouchDB's _users machinery.
func (p *Provisioner) CreateAccount(ctx context.Context, account, password string) error {
	exists, err := p.AccountExists(ctx, account)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Conflict("account already exists")
	}

	dbName := DatabaseName(account)
	user := UserName(account)

	if err := p.client.CreateDB(ctx, dbName); err != nil {
		return mapError(err, "account database")
	}

	if err := p.putUserDoc(ctx, user, password, nil); err != nil {
		return err
	}

	return p.setMembers(ctx, dbName, []string{user})
}

// DeleteAccount destroys the account database and every credential
// attached to it, including minted session users.
func (p *Provisioner) DeleteAccount(ctx context.Context, account string) error {
	exists, err := p.AccountExists(ctx, account)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("account")
	}

	temps, err := p.ListSessionUsers(ctx, account)
	if err != nil {
		return err
	}
	for _, temp := range temps {
		if err := p.deleteUserDoc(ctx, temp); err != nil && !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return err
		}
	}

	if err := p.deleteUserDoc(ctx, UserName(account)); err != nil && !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return err
	}

	if err := p.client.DestroyDB(ctx, DatabaseName(account)); err != nil {
		return mapError(err, "account database")
	}
	return nil
}

// ListAccounts lists account names, derived from the account databases.
func (p *Provisioner) ListAccounts(ctx context.Context) ([]string, error) {
	dbs, err := p.client.AllDBs(ctx)
	if err != nil {
		return nil, mapError(err, "accounts")
	}

	accounts := make([]string, 0, len(dbs))
	for _, db := range dbs {
		if account := AccountFromDatabase(db); account != "" {
			accounts = append(accounts, account)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// VerifyPassword checks an account password against CouchDB itself by
// reading the account database as that user. It never reveals whether
// the account exists.
func (p *Provisioner) VerifyPassword(ctx context.Context, account, password string) error {
	client, err := dial(p.couchURL, UserName(account), password)
	if err != nil {
		return apperrors.AuthenticationFailed().WithCause(err)
	}
	if _, err := client.DB(DatabaseName(account)).Stats(ctx); err != nil {
		return apperrors.AuthenticationFailed().WithCause(err)
	}
	return nil
}

// MintSessionUser creates a fresh CouchDB user scoped to the one account
// database and returns its name and password. The caller owns revocation.
func (p *Provisioner) MintSessionUser(ctx context.Context, account string) (user, password string, err error) {
	suffix, err := util.GenerateToken()
	if err != nil {
		return "", "", apperrors.Internal("generate session user").WithCause(err)
	}
	password, err = util.GeneratePassword()
	if err != nil {
		return "", "", apperrors.Internal("generate session password").WithCause(err)
	}

	user = fmt.Sprintf("%s%s_%s", tempUserPrefix, strings.ToLower(account), suffix[:16])

	if err := p.putUserDoc(ctx, user, password, nil); err != nil {
		return "", "", err
	}
	if err := p.addMember(ctx, DatabaseName(account), user); err != nil {
		return "", "", err
	}
	return user, password, nil
}

// DeleteSessionUser revokes a minted session credential.
func (p *Provisioner) DeleteSessionUser(ctx context.Context, user string) error {
	if !strings.HasPrefix(user, tempUserPrefix) {
		return apperrors.Internal("not a session user")
	}

	account := sessionUserAccount(user)
	if account != "" {
		if err := p.removeMember(ctx, DatabaseName(account), user); err != nil && !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return err
		}
	}
	return p.deleteUserDoc(ctx, user)
}

// ListSessionUsers lists minted session users, optionally filtered to one
// account. Account "" lists all of them.
func (p *Provisioner) ListSessionUsers(ctx context.Context, account string) ([]string, error) {
	prefix := tempUserPrefix
	if account != "" {
		prefix = tempUserPrefix + strings.ToLower(account) + "_"
	}

	rows := p.client.DB(usersDB).AllDocs(ctx, kivik.Params(map[string]any{
		"start_key": userDocPrefix + prefix,
		"end_key":   userDocPrefix + prefix + "￰",
	}))
	defer rows.Close()

	var users []string
	for rows.Next() {
		id, err := rows.ID()
		if err != nil {
			return nil, mapError(err, "session users")
		}
		users = append(users, strings.TrimPrefix(id, userDocPrefix))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "session users")
	}
	return users, nil
}

// ListRoles lists the roles attached to an account's CouchDB user.
func (p *Provisioner) ListRoles(ctx context.Context, account string) ([]string, error) {
	doc, err := p.getUserDoc(ctx, UserName(account))
	if err != nil {
		return nil, err
	}
	roles := rolesOf(doc)
	sort.Strings(roles)
	return roles, nil
}

// AddRole adds a role to the account's user. Duplicate roles conflict.
func (p *Provisioner) AddRole(ctx context.Context, account, role string) error {
	user := UserName(account)
	doc, err := p.getUserDoc(ctx, user)
	if err != nil {
		return err
	}

	roles := rolesOf(doc)
	for _, existing := range roles {
		if existing == role {
			return apperrors.Conflict("role already exists")
		}
	}
	doc["roles"] = append(roles, role)

	if _, err := p.client.DB(usersDB).Put(ctx, userDocID(user), doc); err != nil {
		return mapError(err, "account role")
	}
	return nil
}

// RemoveRole removes a role from the account's user.
func (p *Provisioner) RemoveRole(ctx context.Context, account, role string) error {
	user := UserName(account)
	doc, err := p.getUserDoc(ctx, user)
	if err != nil {
		return err
	}

	roles := rolesOf(doc)
	kept := make([]string, 0, len(roles))
	for _, existing := range roles {
		if existing != role {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(roles) {
		return apperrors.NotFound("role")
	}
	doc["roles"] = kept

	if _, err := p.client.DB(usersDB).Put(ctx, userDocID(user), doc); err != nil {
		return mapError(err, "account role")
	}
	return nil
}

func (p *Provisioner) putUserDoc(ctx context.Context, name, password string, roles []string) error {
	if roles == nil {
		roles = []string{}
	}
	doc := map[string]any{
		"_id":      userDocID(name),
		"name":     name,
		"type":     "user",
		"roles":    roles,
		"password": password,
	}
	if _, err := p.client.DB(usersDB).Put(ctx, userDocID(name), doc); err != nil {
		return mapError(err, "account user")
	}
	return nil
}

func (p *Provisioner) getUserDoc(ctx context.Context, name string) (map[string]any, error) {
	var doc map[string]any
	if err := p.client.DB(usersDB).Get(ctx, userDocID(name)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("account")
		}
		return nil, mapError(err, "account user")
	}
	return doc, nil
}

func (p *Provisioner) deleteUserDoc(ctx context.Context, name string) error {
	db := p.client.DB(usersDB)
	rev, err := db.GetRev(ctx, userDocID(name))
	if err != nil {
		return mapError(err, "account user")
	}
	if _, err := db.Delete(ctx, userDocID(name), rev); err != nil {
		return mapError(err, "account user")
	}
	return nil
}

func (p *Provisioner) setMembers(ctx context.Context, dbName string, names []string) error {
	security := &kivik.Security{
		Members: kivik.Members{Names: names},
	}
	if err := p.client.DB(dbName).SetSecurity(ctx, security); err != nil {
		return mapError(err, "database security")
	}
	return nil
}

func (p *Provisioner) addMember(ctx context.Context, dbName, user string) error {
	db := p.client.DB(dbName)
	security, err := db.Security(ctx)
	if err != nil {
		return mapError(err, "database security")
	}
	for _, name := range security.Members.Names {
		if name == user {
			return nil
		}
	}
	security.Members.Names = append(security.Members.Names, user)
	if err := db.SetSecurity(ctx, security); err != nil {
		return mapError(err, "database security")
	}
	return nil
}

func (p *Provisioner) removeMember(ctx context.Context, dbName, user string) error {
	db := p.client.DB(dbName)
	security, err := db.Security(ctx)
	if err != nil {
		return mapError(err, "database security")
	}
	kept := security.Members.Names[:0]
	for _, name := range security.Members.Names {
		if name != user {
			kept = append(kept, name)
		}
	}
	security.Members.Names = kept
	if err := db.SetSecurity(ctx, security); err != nil {
		return mapError(err, "database security")
	}
	return nil
}

func rolesOf(userDoc map[string]any) []string {
	raw, ok := userDoc["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// sessionUserAccount extracts the account from a minted user name of the
// form tractdb_temp_<account>_<suffix>.
func sessionUserAccount(user string) string {
	rest := strings.TrimPrefix(user, tempUserPrefix)
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}
