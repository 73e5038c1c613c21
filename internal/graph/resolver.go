package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/isdelr/goodcontent-auth/internal/services"
)

// Options tune how the resolver talks HTTP.
type Options struct {
	// SecureCookies adds the Secure attribute to session cookies.
	SecureCookies bool
	// AdminKey, when set, must be presented in auth.AdminKeyHeader for
	// bulk update and delete operations.
	AdminKey string
}

// Resolver implements the GraphQL fields on top of the account service.
type Resolver struct {
	auth *services.AuthService
	opts Options
}

// NewResolver creates a new Resolver.
func NewResolver(authService *services.AuthService, opts Options) *Resolver {
	return &Resolver{auth: authService, opts: opts}
}

func (r *Resolver) allUsers(p graphql.ResolveParams) (interface{}, error) {
	return r.auth.AllUsers(p.Context)
}

func (r *Resolver) me(p graphql.ResolveParams) (interface{}, error) {
	token := ExchangeFrom(p.Context).Cookies()[auth.SessionCookieName]
	user, err := r.auth.CurrentUser(p.Context, token)
	return userResult(user), err
}

func (r *Resolver) users(p graphql.ResolveParams) (interface{}, error) {
	filter, err := whereArg(p)
	if err != nil {
		return nil, err
	}
	page := models.Page{Skip: intArg(p.Args, "skip"), First: intArg(p.Args, "first")}
	return r.auth.ListUsers(p.Context, filter, page)
}

func (r *Resolver) signup(p graphql.ResolveParams) (interface{}, error) {
	session, err := r.auth.Signup(p.Context, services.SignupInput{
		Email:      stringArg(p.Args, "email"),
		Password:   stringArg(p.Args, "password"),
		FirstName:  stringArg(p.Args, "first_name"),
		LastName:   stringArg(p.Args, "last_name"),
		InviteCode: stringArg(p.Args, "inviteCode"),
	})
	if err != nil {
		return nil, err
	}
	ExchangeFrom(p.Context).SetCookie(auth.SessionCookie(session.Token, r.opts.SecureCookies))
	return session.User, nil
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	session, err := r.auth.Login(p.Context, stringArg(p.Args, "email"), stringArg(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	ExchangeFrom(p.Context).SetCookie(auth.SessionCookie(session.Token, r.opts.SecureCookies))
	return session.User, nil
}

func (r *Resolver) logout(p graphql.ResolveParams) (interface{}, error) {
	ExchangeFrom(p.Context).SetCookie(auth.ClearSessionCookie(r.opts.SecureCookies))
	return true, nil
}

func (r *Resolver) bigRedButton(p graphql.ResolveParams) (interface{}, error) {
	if err := r.requireAdmin(p.Context); err != nil {
		return nil, err
	}
	count, err := r.auth.BigRedButton(p.Context)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%d user(s) destroyed. Thanos will be proud.", count), nil
}

func (r *Resolver) deleteOne(p graphql.ResolveParams) (interface{}, error) {
	if err := r.requireAdmin(p.Context); err != nil {
		return nil, err
	}
	user, err := r.auth.DeleteUser(p.Context, userLookup(p.Args["where"]))
	return userResult(user), err
}

func (r *Resolver) deleteMany(p graphql.ResolveParams) (interface{}, error) {
	if err := r.requireAdmin(p.Context); err != nil {
		return nil, err
	}
	filter, err := whereArg(p)
	if err != nil {
		return nil, err
	}
	count, err := r.auth.DeleteUsers(p.Context, filter)
	if err != nil {
		return nil, err
	}
	return batchPayload{Count: count}, nil
}

func (r *Resolver) updateOne(p graphql.ResolveParams) (interface{}, error) {
	if err := r.requireAdmin(p.Context); err != nil {
		return nil, err
	}
	user, err := r.auth.UpdateUser(p.Context, userLookup(p.Args["where"]), userUpdate(p.Args["data"]))
	return userResult(user), err
}

func (r *Resolver) updateMany(p graphql.ResolveParams) (interface{}, error) {
	if err := r.requireAdmin(p.Context); err != nil {
		return nil, err
	}
	filter, err := whereArg(p)
	if err != nil {
		return nil, err
	}
	count, err := r.auth.UpdateUsers(p.Context, filter, userUpdate(p.Args["data"]))
	if err != nil {
		return nil, err
	}
	return batchPayload{Count: count}, nil
}

func (r *Resolver) requireAdmin(ctx context.Context) error {
	if r.opts.AdminKey == "" {
		return nil
	}
	if !auth.AdminKeyMatches(ExchangeFrom(ctx).Header(auth.AdminKeyHeader), r.opts.AdminKey) {
		return apperr.New(apperr.CodeAuthorizationDenied, apperr.MsgAdminKeyRequired)
	}
	return nil
}

type batchPayload struct {
	Count int64 `json:"count"`
}

// userResult keeps a nil *models.User from reaching the executor as a
// typed nil.
func userResult(u *models.User) interface{} {
	if u == nil {
		return nil
	}
	return *u
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func intArg(args map[string]interface{}, name string) int {
	n, _ := args[name].(int)
	return n
}

func optString(m map[string]interface{}, name string) *string {
	if s, ok := m[name].(string); ok {
		return &s
	}
	return nil
}

// whereArg decodes the where argument. The executor drops null input
// fields, which would silently widen a bulk filter to every user, so a
// field set to null is rejected instead.
func whereArg(p graphql.ResolveParams) (models.UserFilter, error) {
	if nulls := nullFields(p, "where"); len(nulls) > 0 {
		return models.UserFilter{}, apperr.Invalid(apperr.FieldWhere, fmt.Sprintf("where.%s must not be null", nulls[0]))
	}
	return userFilter(p.Args["where"]), nil
}

// nullFields names the fields of the input object argument arg that the
// operation sets to null, either through an unbound variable or a null
// entry in an object variable.
func nullFields(p graphql.ResolveParams, arg string) []string {
	var nulls []string
	for _, field := range p.Info.FieldASTs {
		for _, a := range field.Arguments {
			if a == nil || a.Name == nil || a.Name.Value != arg {
				continue
			}
			switch v := a.Value.(type) {
			case *ast.ObjectValue:
				for _, f := range v.Fields {
					if f == nil || f.Name == nil {
						continue
					}
					if ref, ok := f.Value.(*ast.Variable); ok && ref.Name != nil && p.Info.VariableValues[ref.Name.Value] == nil {
						nulls = append(nulls, f.Name.Value)
					}
				}
			case *ast.Variable:
				if v.Name == nil {
					continue
				}
				raw, _ := requestVariables(p.Context)[v.Name.Value].(map[string]interface{})
				for name, value := range raw {
					if value == nil {
						nulls = append(nulls, name)
					}
				}
			}
		}
	}
	sort.Strings(nulls)
	return nulls
}

func userFilter(v interface{}) models.UserFilter {
	m, _ := v.(map[string]interface{})
	return models.UserFilter{
		ID:        optString(m, "id"),
		Email:     optString(m, "email"),
		FirstName: optString(m, "first_name"),
		LastName:  optString(m, "last_name"),
	}
}

func userLookup(v interface{}) models.UserLookup {
	m, _ := v.(map[string]interface{})
	return models.UserLookup{ID: stringArg(m, "id"), Email: stringArg(m, "email")}
}

func userUpdate(v interface{}) services.UserUpdate {
	m, _ := v.(map[string]interface{})
	return services.UserUpdate{
		FirstName: optString(m, "first_name"),
		LastName:  optString(m, "last_name"),
		Email:     optString(m, "email"),
		Password:  optString(m, "password"),
	}
}
