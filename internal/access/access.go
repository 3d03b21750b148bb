// Package access реализует маршрутизацию по ролям: каждый путь принадлежит
// одному дереву (публичное, общее для вошедших, продавца, администратора),
// а Decide решает, пустить ли principal в это дерево
package access

import (
	"strings"

	"github.com/iwanyu/marketplace/internal/domain/models"
)

const (
	SignInPath    = "/api/auth/signin"
	ForbiddenPath = "/forbidden"
)

type Tree int

const (
	TreeUnknown Tree = iota
	TreePublic
	TreeAuthenticated
	TreeVendor
	TreeAdmin
)

type Outcome int

const (
	Allow Outcome = iota
	RedirectSignIn
	Forbidden
	NotFound
)

// Decision результат проверки доступа; Location заполнен для перенаправлений
type Decision struct {
	Outcome  Outcome
	Tree     Tree
	Location string
}

// пути, требующие входа, хотя лежат под /api/auth/
var authenticatedExact = map[string]bool{
	"/api/auth/session": true,
	"/api/auth/signout": true,
}

var publicExact = map[string]bool{
	"/healthz": true,
}

var prefixes = []struct {
	prefix string
	tree   Tree
}{
	{"/api/auth/", TreePublic},
	{"/api/store/", TreePublic},
	// закрытый бакет проверяется раньше общего /files/
	{"/files/vendor-documents/", TreeAuthenticated},
	{"/files/", TreePublic},
	{"/api/vendor/", TreeVendor},
	{"/api/admin/", TreeAdmin},
	{"/api/me/", TreeAuthenticated},
	{"/api/messages/", TreeAuthenticated},
	{"/api/uploads/", TreeAuthenticated},
}

// Classify определяет дерево маршрутов для пути
func Classify(path string) Tree {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if publicExact[path] {
		return TreePublic
	}
	if authenticatedExact[path] {
		return TreeAuthenticated
	}
	for _, p := range prefixes {
		// "/api/vendor" без хвоста относится к тому же дереву
		if strings.HasPrefix(path, p.prefix) || path == strings.TrimSuffix(p.prefix, "/") {
			return p.tree
		}
	}
	return TreeUnknown
}

// Decide чистая функция доступа: principal == nil означает анонима.
// Аноним на закрытом пути отправляется на вход, чужая роль получает forbidden,
// неизвестный путь уходит в 404
func Decide(principal *models.Principal, path string) Decision {
	tree := Classify(path)
	switch tree {
	case TreeUnknown:
		return Decision{Outcome: NotFound, Tree: tree}
	case TreePublic:
		return Decision{Outcome: Allow, Tree: tree}
	}

	if principal == nil {
		return Decision{Outcome: RedirectSignIn, Tree: tree, Location: SignInPath}
	}

	switch tree {
	case TreeVendor:
		if principal.Role != models.RoleVendor {
			return Decision{Outcome: Forbidden, Tree: tree, Location: ForbiddenPath}
		}
	case TreeAdmin:
		if principal.Role != models.RoleAdmin {
			return Decision{Outcome: Forbidden, Tree: tree, Location: ForbiddenPath}
		}
	}
	return Decision{Outcome: Allow, Tree: tree}
}
