package auth

import (
	"errors"
	"family_tree/registry/schema"
	"family_tree/utils"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

func AdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !user.IsAdmin {
				http.Error(w, fmt.Sprintf("user %v is not an admin", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// TreeOwnerOnly gates routes carrying a {tree_id} url parameter: the request
// proceeds only if the tree exists and is owned by the authenticated user.
// Both failure cases answer 404 so callers cannot distinguish "wrong id"
// from "not yours". Admins get no special treatment here, tree ownership is
// absolute.
func TreeOwnerOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			treeId, err := utils.URLParamUUID(r, "tree_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if _, err := schema.GetOwnedTree(treeId, user.Id, db); err != nil {
				if errors.Is(err, schema.ErrTreeAccessDenied) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// MemberOwnerOnly is the member level counterpart of TreeOwnerOnly: it walks
// ownership from the {member_id} url parameter through the member's tree to
// the authenticated user, collapsing absent and unowned into 404.
func MemberOwnerOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			memberId, err := utils.URLParamUUID(r, "member_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if _, err := schema.GetOwnedMember(memberId, user.Id, db, false); err != nil {
				if errors.Is(err, schema.ErrMemberAccessDenied) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
