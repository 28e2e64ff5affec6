package services

import (
	"family_tree/registry/auth"
	"family_tree/registry/schema"
	"family_tree/registry/storage"
	"family_tree/utils"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TreeService is the tree registry: it owns FamilyTree entities and enforces
// that a tree is visible and mutable only by its creator.
type TreeService struct {
	db       *gorm.DB
	storage  storage.Storage
	userAuth auth.IdentityProvider
}

func (s *TreeService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/list", s.List)
	r.Post("/create", s.Create)

	r.Route("/{tree_id}", func(r chi.Router) {
		r.Use(auth.TreeOwnerOnly(s.db))

		r.Get("/", s.Get)
		r.Post("/", s.Update)
		r.Delete("/", s.Delete)

		r.Get("/members", s.Members)
	})

	return r
}

type TreeInfo struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func convertToTreeInfo(tree *schema.FamilyTree) TreeInfo {
	return TreeInfo{
		Id:          tree.Id,
		Name:        tree.Name,
		Description: tree.Description,
		CreatedAt:   tree.CreatedAt,
		UpdatedAt:   tree.UpdatedAt,
	}
}

// TreeDetail is the full query result for one tree: the tree plus every
// member with its relationships, partnerships, and events expanded.
type TreeDetail struct {
	TreeInfo
	Members []MemberInfo `json:"members"`
}

func (s *TreeService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var trees []schema.FamilyTree
	result := s.db.Where("owner_id = ?", user.Id).Order("updated_at DESC").Find(&trees)
	if result.Error != nil {
		slog.Error("sql error listing trees", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing trees: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]TreeInfo, 0, len(trees))
	for _, tree := range trees {
		infos = append(infos, convertToTreeInfo(&tree))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *TreeService) Get(w http.ResponseWriter, r *http.Request) {
	treeId, err := utils.URLParamUUID(r, "tree_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var detail TreeDetail

	err = s.db.Transaction(func(txn *gorm.DB) error {
		tree, err := resolveOwnedTree(txn, treeId, user.Id)
		if err != nil {
			return err
		}

		members, err := schema.GetTreeMembers(tree.Id, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}

		detail = TreeDetail{TreeInfo: convertToTreeInfo(&tree), Members: make([]MemberInfo, 0, len(members))}
		for _, member := range members {
			detail.Members = append(detail.Members, convertToMemberInfo(&member))
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error getting tree: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, detail)
}

func (s *TreeService) Members(w http.ResponseWriter, r *http.Request) {
	treeId, err := utils.URLParamUUID(r, "tree_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	members, err := schema.GetTreeMembers(treeId, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing members: %v", err), http.StatusInternalServerError)
		return
	}

	infos := make([]MemberInfo, 0, len(members))
	for _, member := range members {
		infos = append(infos, convertToMemberInfo(&member))
	}

	utils.WriteJsonResponse(w, infos)
}

type createTreeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createTreeResponse struct {
	TreeId uuid.UUID `json:"tree_id"`
}

func (s *TreeService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createTreeRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "tree name must be specified", http.StatusUnprocessableEntity)
		return
	}

	newTree := schema.FamilyTree{
		Id:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		OwnerId:     user.Id,
	}

	result := s.db.Create(&newTree)
	if result.Error != nil {
		slog.Error("sql error creating new tree", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating tree: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	treeCreates.Inc()
	slog.Info("created new family tree", "tree_id", newTree.Id, "user_id", user.Id)

	utils.WriteJsonResponse(w, createTreeResponse{TreeId: newTree.Id})
}

func (s *TreeService) Update(w http.ResponseWriter, r *http.Request) {
	treeId, err := utils.URLParamUUID(r, "tree_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createTreeRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "tree name must be specified", http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		tree, err := resolveOwnedTree(txn, treeId, user.Id)
		if err != nil {
			return err
		}

		result := txn.Model(&tree).Updates(map[string]interface{}{
			"name":        params.Name,
			"description": params.Description,
		})
		if result.Error != nil {
			slog.Error("sql error updating tree", "tree_id", treeId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating tree: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *TreeService) Delete(w http.ResponseWriter, r *http.Request) {
	treeId, err := utils.URLParamUUID(r, "tree_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var memberIds []uuid.UUID

	err = s.db.Transaction(func(txn *gorm.DB) error {
		tree, err := resolveOwnedTree(txn, treeId, user.Id)
		if err != nil {
			return err
		}

		result := txn.Model(&schema.FamilyMember{}).Where("tree_id = ?", tree.Id).Pluck("id", &memberIds)
		if result.Error != nil {
			slog.Error("sql error listing tree members for cascade", "tree_id", treeId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if err := deleteMemberGraph(txn, memberIds); err != nil {
			return err
		}

		result = txn.Where("tree_id = ?", tree.Id).Delete(&schema.FamilyMember{})
		if result.Error != nil {
			slog.Error("sql error deleting tree members", "tree_id", treeId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result = txn.Delete(&tree)
		if result.Error != nil {
			slog.Error("sql error deleting tree", "tree_id", treeId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting tree: %v", err), GetResponseCode(err))
		return
	}

	// Photo cleanup happens outside the transaction: the rows are already
	// gone, a leftover file on disk is harmless and unreachable.
	for _, memberId := range memberIds {
		if err := s.storage.Delete(storage.MemberPath(memberId)); err != nil {
			slog.Error("error deleting member storage after tree delete", "member_id", memberId, "error", err)
		}
	}

	treeDeletes.Inc()
	slog.Info("deleted family tree", "tree_id", treeId, "user_id", user.Id, "members_removed", len(memberIds))

	utils.WriteSuccess(w)
}

// deleteMemberGraph removes every relationship, partnership, and event that
// references any of the given members. Runs inside the caller's transaction
// so a cascade is all or nothing.
func deleteMemberGraph(txn *gorm.DB, memberIds []uuid.UUID) error {
	if len(memberIds) == 0 {
		return nil
	}

	result := txn.Where("parent_id IN ? OR child_id IN ?", memberIds, memberIds).Delete(&schema.Relationship{})
	if result.Error != nil {
		slog.Error("sql error deleting member relationships", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	result = txn.Where("partner1_id IN ? OR partner2_id IN ?", memberIds, memberIds).Delete(&schema.Partnership{})
	if result.Error != nil {
		slog.Error("sql error deleting member partnerships", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	result = txn.Where("member_id IN ?", memberIds).Delete(&schema.MemberEvent{})
	if result.Error != nil {
		slog.Error("sql error deleting member events", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}
