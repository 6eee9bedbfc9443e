// Package permission decides whether an actor may perform an action. Checks
// run in two tiers: HasPermission before any record is loaded, and
// HasObjectPermission once the target record and its owner are known.
package permission

import (
	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

// Actor is the authenticated caller. A nil *Actor is anonymous.
type Actor struct {
	ID          int64
	Username    string
	Role        model.Role
	IsSuperuser bool
}

func NewActor(u *model.User) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Username: u.Username, Role: u.Role, IsSuperuser: u.IsSuperuser}
}

func (a *Actor) Authenticated() bool { return a != nil }

// IsAdmin is satisfied by the admin role or the superuser flag.
func (a *Actor) IsAdmin() bool {
	return a != nil && (a.Role == model.RoleAdmin || a.IsSuperuser)
}

func (a *Actor) IsModerator() bool {
	return a != nil && a.Role == model.RoleModerator
}

func (a *Actor) Owns(ownerID int64) bool {
	return a != nil && a.ID == ownerID
}

type Action string

const (
	List          Action = "list"
	Retrieve      Action = "retrieve"
	Create        Action = "create"
	Update        Action = "update"
	PartialUpdate Action = "partial_update"
	Destroy       Action = "destroy"
)

// Safe actions never change state.
func (a Action) Safe() bool {
	return a == List || a == Retrieve
}

type Policy interface {
	HasPermission(actor *Actor, action Action) error
	HasObjectPermission(actor *Actor, action Action, ownerID int64) error
}

func denyAnonymous(actor *Actor) error {
	if !actor.Authenticated() {
		return apperror.Unauthorized("authentication credentials were not provided")
	}
	return nil
}

// AdminOrReadOnly guards categories, genres and titles.
type AdminOrReadOnly struct{}

func (AdminOrReadOnly) HasPermission(actor *Actor, action Action) error {
	if action.Safe() {
		return nil
	}
	if err := denyAnonymous(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperror.Forbidden(apperror.LevelRequest, "only administrators may modify this resource")
	}
	return nil
}

func (AdminOrReadOnly) HasObjectPermission(*Actor, Action, int64) error { return nil }

// AuthorModeratorAdminOrReadOnly guards reviews and comments.
type AuthorModeratorAdminOrReadOnly struct{}

func (AuthorModeratorAdminOrReadOnly) HasPermission(actor *Actor, action Action) error {
	if action.Safe() {
		return nil
	}
	return denyAnonymous(actor)
}

func (AuthorModeratorAdminOrReadOnly) HasObjectPermission(actor *Actor, action Action, ownerID int64) error {
	if action.Safe() {
		return nil
	}
	if err := denyAnonymous(actor); err != nil {
		return err
	}
	if actor.Owns(ownerID) || actor.IsModerator() || actor.IsAdmin() {
		return nil
	}
	return apperror.Forbidden(apperror.LevelObject, "you may only modify your own content")
}

// AdminOnly guards user management.
type AdminOnly struct{}

func (AdminOnly) HasPermission(actor *Actor, _ Action) error {
	if err := denyAnonymous(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperror.Forbidden(apperror.LevelRequest, "administrator access required")
	}
	return nil
}

func (AdminOnly) HasObjectPermission(*Actor, Action, int64) error { return nil }

// Authenticated guards the self-profile.
type Authenticated struct{}

func (Authenticated) HasPermission(actor *Actor, _ Action) error {
	return denyAnonymous(actor)
}

func (Authenticated) HasObjectPermission(actor *Actor, _ Action, ownerID int64) error {
	if err := denyAnonymous(actor); err != nil {
		return err
	}
	if !actor.Owns(ownerID) {
		return apperror.Forbidden(apperror.LevelObject, "not your profile")
	}
	return nil
}

type Resource string

const (
	Categories Resource = "categories"
	Genres     Resource = "genres"
	Titles     Resource = "titles"
	Reviews    Resource = "reviews"
	Comments   Resource = "comments"
	Users      Resource = "users"
	Self       Resource = "self"
)

var policies = map[Resource]Policy{
	Categories: AdminOrReadOnly{},
	Genres:     AdminOrReadOnly{},
	Titles:     AdminOrReadOnly{},
	Reviews:    AuthorModeratorAdminOrReadOnly{},
	Comments:   AuthorModeratorAdminOrReadOnly{},
	Users:      AdminOnly{},
	Self:       Authenticated{},
}

// For returns the policy guarding r. Unknown resources are admin only.
func For(r Resource) Policy {
	if p, ok := policies[r]; ok {
		return p
	}
	return AdminOnly{}
}

// Check runs both tiers. ownerID is consulted only when hasOwner is true.
func Check(actor *Actor, r Resource, action Action, ownerID int64, hasOwner bool) error {
	p := For(r)
	if err := p.HasPermission(actor, action); err != nil {
		return err
	}
	if !hasOwner {
		return nil
	}
	return p.HasObjectPermission(actor, action, ownerID)
}
