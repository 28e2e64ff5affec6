package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTreeAccessDenied and ErrMemberAccessDenied deliberately collapse "does
// not exist" and "exists but is owned by someone else" into one error, so an
// unauthorized caller cannot probe for other users' ids.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTreeAccessDenied   = errors.New("family tree not found or access denied")
	ErrMemberAccessDenied = errors.New("family member not found or access denied")
	ErrIntegrityViolation = errors.New("operation conflicts with a concurrent change, retry the operation")
	ErrDbAccessFailed     = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

// GetOwnedTree resolves a tree only if it is owned by the given user. Both a
// missing tree and a tree owned by another user yield ErrTreeAccessDenied.
func GetOwnedTree(treeId, ownerId uuid.UUID, db *gorm.DB) (FamilyTree, error) {
	var tree FamilyTree

	result := db.First(&tree, "id = ? AND owner_id = ?", treeId, ownerId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tree, ErrTreeAccessDenied
		}
		slog.Error("sql error in get owned tree", "tree_id", treeId, "error", result.Error)
		return tree, ErrDbAccessFailed
	}

	return tree, nil
}

func preloadMemberGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("ParentLinks").Preload("ParentLinks.Parent").
		Preload("ChildLinks").Preload("ChildLinks.Child").
		Preload("PartnershipsAs1").Preload("PartnershipsAs1.Partner2").
		Preload("PartnershipsAs2").Preload("PartnershipsAs2.Partner1").
		Preload("Events")
}

// GetOwnedMember resolves a member and walks ownership back through its tree
// to the given user. Absent member and unowned tree are indistinguishable to
// the caller. If loadGraph is set the member's relationships, partnerships
// (both slots), and events are loaded eagerly, with each edge expanded to the
// related member.
func GetOwnedMember(memberId, ownerId uuid.UUID, db *gorm.DB, loadGraph bool) (FamilyMember, error) {
	var member FamilyMember

	query := db
	if loadGraph {
		query = preloadMemberGraph(query)
	}

	result := query.First(&member, "id = ?", memberId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return member, ErrMemberAccessDenied
		}
		slog.Error("sql error in get owned member", "member_id", memberId, "error", result.Error)
		return member, ErrDbAccessFailed
	}

	if _, err := GetOwnedTree(member.TreeId, ownerId, db); err != nil {
		if errors.Is(err, ErrTreeAccessDenied) {
			return FamilyMember{}, ErrMemberAccessDenied
		}
		return FamilyMember{}, err
	}

	return member, nil
}

// GetTreeMembers lists the members of a tree ordered by last name, with the
// full member graph loaded. Ownership of the tree must already be verified.
func GetTreeMembers(treeId uuid.UUID, db *gorm.DB) ([]FamilyMember, error) {
	var members []FamilyMember

	result := preloadMemberGraph(db).
		Where("tree_id = ?", treeId).
		Order("last_name ASC").
		Find(&members)

	if result.Error != nil {
		slog.Error("sql error listing tree members", "tree_id", treeId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}

	return members, nil
}
