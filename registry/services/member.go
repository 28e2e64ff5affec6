package services

import (
	"errors"
	"family_tree/registry/auth"
	"family_tree/registry/schema"
	"family_tree/registry/storage"
	"family_tree/utils"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberService manages the member graph within a tree: the members
// themselves plus the parent-child, partnership, and event records attached
// to them. Every operation resolves ownership through the member's tree.
type MemberService struct {
	db       *gorm.DB
	storage  storage.Storage
	userAuth auth.IdentityProvider
}

func (s *MemberService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)

	// Edge creation takes both endpoint ids in the body, so these routes sit
	// outside the single-member subtree.
	r.Post("/relationship", s.AddRelationship)
	r.Post("/partnership", s.AddPartnership)

	r.Route("/{member_id}", func(r chi.Router) {
		r.Use(auth.MemberOwnerOnly(s.db))

		r.Get("/", s.Get)
		r.Post("/", s.Update)
		r.Delete("/", s.Delete)

		r.Post("/events", s.AddEvent)

		r.With(checkSufficientStorage(s.storage)).Post("/photo", s.UploadPhoto)
		r.Get("/photo", s.DownloadPhoto)
	})

	return r
}

type MemberSummary struct {
	Id        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Gender    string     `json:"gender"`
	BirthDate *time.Time `json:"birth_date"`
	DeathDate *time.Time `json:"death_date"`
}

func convertToMemberSummary(member *schema.FamilyMember) MemberSummary {
	return MemberSummary{
		Id:        member.Id,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		Gender:    member.Gender,
		BirthDate: member.BirthDate,
		DeathDate: member.DeathDate,
	}
}

type ParentLink struct {
	RelationshipId uuid.UUID     `json:"relationship_id"`
	Type           string        `json:"type"`
	Parent         MemberSummary `json:"parent"`
}

type ChildLink struct {
	RelationshipId uuid.UUID     `json:"relationship_id"`
	Type           string        `json:"type"`
	Child          MemberSummary `json:"child"`
}

type PartnershipInfo struct {
	PartnershipId uuid.UUID     `json:"partnership_id"`
	Type          string        `json:"type"`
	StartDate     *time.Time    `json:"start_date"`
	EndDate       *time.Time    `json:"end_date"`
	Place         string        `json:"place"`
	Notes         string        `json:"notes"`
	Partner       MemberSummary `json:"partner"`
}

type EventInfo struct {
	EventId     uuid.UUID  `json:"event_id"`
	Type        string     `json:"type"`
	Date        *time.Time `json:"date"`
	Place       string     `json:"place"`
	Description string     `json:"description"`
}

type MemberInfo struct {
	MemberSummary

	TreeId     uuid.UUID `json:"tree_id"`
	BirthPlace string    `json:"birth_place"`
	DeathPlace string    `json:"death_place"`
	Bio        string    `json:"bio"`
	PhotoUrl   string    `json:"photo_url"`

	Parents      []ParentLink      `json:"parents"`
	Children     []ChildLink       `json:"children"`
	Partnerships []PartnershipInfo `json:"partnerships"`
	Events       []EventInfo       `json:"events"`
}

func convertToMemberInfo(member *schema.FamilyMember) MemberInfo {
	info := MemberInfo{
		MemberSummary: convertToMemberSummary(member),
		TreeId:        member.TreeId,
		BirthPlace:    member.BirthPlace,
		DeathPlace:    member.DeathPlace,
		Bio:           member.Bio,
		PhotoUrl:      member.PhotoUrl,
		Parents:       make([]ParentLink, 0, len(member.ParentLinks)),
		Children:      make([]ChildLink, 0, len(member.ChildLinks)),
		Partnerships:  make([]PartnershipInfo, 0, len(member.PartnershipsAs1)+len(member.PartnershipsAs2)),
		Events:        make([]EventInfo, 0, len(member.Events)),
	}

	for _, link := range member.ParentLinks {
		if link.Parent == nil {
			continue
		}
		info.Parents = append(info.Parents, ParentLink{
			RelationshipId: link.Id, Type: link.Type, Parent: convertToMemberSummary(link.Parent),
		})
	}

	for _, link := range member.ChildLinks {
		if link.Child == nil {
			continue
		}
		info.Children = append(info.Children, ChildLink{
			RelationshipId: link.Id, Type: link.Type, Child: convertToMemberSummary(link.Child),
		})
	}

	// The two partnership slots are interchangeable, the other occupant is
	// always presented as "partner".
	for _, p := range member.PartnershipsAs1 {
		if p.Partner2 == nil {
			continue
		}
		info.Partnerships = append(info.Partnerships, PartnershipInfo{
			PartnershipId: p.Id, Type: p.Type, StartDate: p.StartDate, EndDate: p.EndDate,
			Place: p.Place, Notes: p.Notes, Partner: convertToMemberSummary(p.Partner2),
		})
	}
	for _, p := range member.PartnershipsAs2 {
		if p.Partner1 == nil {
			continue
		}
		info.Partnerships = append(info.Partnerships, PartnershipInfo{
			PartnershipId: p.Id, Type: p.Type, StartDate: p.StartDate, EndDate: p.EndDate,
			Place: p.Place, Notes: p.Notes, Partner: convertToMemberSummary(p.Partner1),
		})
	}

	for _, event := range member.Events {
		info.Events = append(info.Events, EventInfo{
			EventId: event.Id, Type: event.Type, Date: event.Date,
			Place: event.Place, Description: event.Description,
		})
	}

	return info
}

// graphWriteError classifies a failed edge or member write. A foreign key
// violation means the row the edge points at was deleted after the ownership
// check resolved it, which surfaces as a retryable conflict.
func graphWriteError(err error, what string) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		integrityConflicts.Inc()
		return CodedError(schema.ErrIntegrityViolation, http.StatusConflict)
	}
	slog.Error("sql error "+what, "error", err)
	return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
}

type memberAttributes struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Gender     string     `json:"gender"`
	BirthDate  *time.Time `json:"birth_date"`
	DeathDate  *time.Time `json:"death_date"`
	BirthPlace string     `json:"birth_place"`
	DeathPlace string     `json:"death_place"`
	Bio        string     `json:"bio"`
	// PhotoUrl may point at an external image. The photo upload endpoint
	// overwrites it with the download URL for the stored blob.
	PhotoUrl string `json:"photo_url"`
}

type createMemberRequest struct {
	TreeId uuid.UUID `json:"tree_id"`
	memberAttributes
}

type createMemberResponse struct {
	MemberId uuid.UUID `json:"member_id"`
}

func (s *MemberService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createMemberRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Gender == "" {
		params.Gender = schema.Unknown
	}

	if err := checkMemberAttributes(params.FirstName, params.LastName, params.Gender); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	newMember := schema.FamilyMember{
		Id:         uuid.New(),
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Gender:     params.Gender,
		BirthDate:  params.BirthDate,
		DeathDate:  params.DeathDate,
		BirthPlace: params.BirthPlace,
		DeathPlace: params.DeathPlace,
		Bio:        params.Bio,
		PhotoUrl:   params.PhotoUrl,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		tree, err := resolveOwnedTree(txn, params.TreeId, user.Id)
		if err != nil {
			return err
		}

		newMember.TreeId = tree.Id

		if result := txn.Create(&newMember); result.Error != nil {
			return graphWriteError(result.Error, "creating member")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating member: %v", err), GetResponseCode(err))
		return
	}

	memberCreates.Inc()
	slog.Info("created family member", "member_id", newMember.Id, "tree_id", newMember.TreeId)

	utils.WriteJsonResponse(w, createMemberResponse{MemberId: newMember.Id})
}

func (s *MemberService) Get(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	member, err := resolveOwnedMember(s.db, memberId, user.Id, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting member: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToMemberInfo(&member))
}

func (s *MemberService) Update(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params memberAttributes
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Gender == "" {
		params.Gender = schema.Unknown
	}

	if err := checkMemberAttributes(params.FirstName, params.LastName, params.Gender); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		member, err := resolveOwnedMember(txn, memberId, user.Id, false)
		if err != nil {
			return err
		}

		// Full replace of the member's attributes. TreeId is intentionally
		// absent, members cannot move between trees.
		result := txn.Model(&member).Updates(map[string]interface{}{
			"first_name":  params.FirstName,
			"last_name":   params.LastName,
			"gender":      params.Gender,
			"birth_date":  params.BirthDate,
			"death_date":  params.DeathDate,
			"birth_place": params.BirthPlace,
			"death_place": params.DeathPlace,
			"bio":         params.Bio,
			"photo_url":   params.PhotoUrl,
		})
		if result.Error != nil {
			return graphWriteError(result.Error, "updating member")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating member: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *MemberService) Delete(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		member, err := resolveOwnedMember(txn, memberId, user.Id, false)
		if err != nil {
			return err
		}

		if err := deleteMemberGraph(txn, []uuid.UUID{member.Id}); err != nil {
			return err
		}

		if result := txn.Delete(&member); result.Error != nil {
			return graphWriteError(result.Error, "deleting member")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting member: %v", err), GetResponseCode(err))
		return
	}

	if err := s.storage.Delete(storage.MemberPath(memberId)); err != nil {
		slog.Error("error deleting member storage", "member_id", memberId, "error", err)
	}

	memberDeletes.Inc()
	slog.Info("deleted family member", "member_id", memberId)

	utils.WriteSuccess(w)
}

type addRelationshipRequest struct {
	ParentId uuid.UUID `json:"parent_id"`
	ChildId  uuid.UUID `json:"child_id"`
	Type     string    `json:"type"`
}

type addRelationshipResponse struct {
	RelationshipId uuid.UUID `json:"relationship_id"`
}

func (s *MemberService) AddRelationship(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addRelationshipRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidRelationshipType(params.Type); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if params.ParentId == params.ChildId {
		http.Error(w, "a member cannot be their own parent", http.StatusUnprocessableEntity)
		return
	}

	newRelationship := schema.Relationship{
		Id:       uuid.New(),
		ParentId: params.ParentId,
		ChildId:  params.ChildId,
		Type:     params.Type,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		parent, err := resolveOwnedMember(txn, params.ParentId, user.Id, false)
		if err != nil {
			return err
		}

		child, err := resolveOwnedMember(txn, params.ChildId, user.Id, false)
		if err != nil {
			return err
		}

		if parent.TreeId != child.TreeId {
			return CodedError(errors.New("both members must belong to the same tree"), http.StatusUnprocessableEntity)
		}

		if result := txn.Create(&newRelationship); result.Error != nil {
			return graphWriteError(result.Error, "creating relationship")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating relationship: %v", err), GetResponseCode(err))
		return
	}

	relationshipAdds.Inc()
	slog.Info("created relationship", "parent_id", params.ParentId, "child_id", params.ChildId, "type", params.Type)

	utils.WriteJsonResponse(w, addRelationshipResponse{RelationshipId: newRelationship.Id})
}

type addPartnershipRequest struct {
	Partner1Id uuid.UUID  `json:"partner1_id"`
	Partner2Id uuid.UUID  `json:"partner2_id"`
	Type       string     `json:"type"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Place      string     `json:"place"`
	Notes      string     `json:"notes"`
}

type addPartnershipResponse struct {
	PartnershipId uuid.UUID `json:"partnership_id"`
}

func (s *MemberService) AddPartnership(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addPartnershipRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidPartnershipType(params.Type); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if params.Partner1Id == params.Partner2Id {
		http.Error(w, "a member cannot be partnered with themselves", http.StatusUnprocessableEntity)
		return
	}

	newPartnership := schema.Partnership{
		Id:         uuid.New(),
		Partner1Id: params.Partner1Id,
		Partner2Id: params.Partner2Id,
		Type:       params.Type,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		Place:      params.Place,
		Notes:      params.Notes,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		partner1, err := resolveOwnedMember(txn, params.Partner1Id, user.Id, false)
		if err != nil {
			return err
		}

		partner2, err := resolveOwnedMember(txn, params.Partner2Id, user.Id, false)
		if err != nil {
			return err
		}

		if partner1.TreeId != partner2.TreeId {
			return CodedError(errors.New("both members must belong to the same tree"), http.StatusUnprocessableEntity)
		}

		if result := txn.Create(&newPartnership); result.Error != nil {
			return graphWriteError(result.Error, "creating partnership")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating partnership: %v", err), GetResponseCode(err))
		return
	}

	partnershipAdds.Inc()
	slog.Info("created partnership", "partner1_id", params.Partner1Id, "partner2_id", params.Partner2Id, "type", params.Type)

	utils.WriteJsonResponse(w, addPartnershipResponse{PartnershipId: newPartnership.Id})
}

type addEventRequest struct {
	Type        string     `json:"type"`
	Date        *time.Time `json:"date"`
	Place       string     `json:"place"`
	Description string     `json:"description"`
}

type addEventResponse struct {
	EventId uuid.UUID `json:"event_id"`
}

func (s *MemberService) AddEvent(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addEventRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidEventType(params.Type); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	newEvent := schema.MemberEvent{
		Id:          uuid.New(),
		Type:        params.Type,
		Date:        params.Date,
		Place:       params.Place,
		Description: params.Description,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		member, err := resolveOwnedMember(txn, memberId, user.Id, false)
		if err != nil {
			return err
		}

		newEvent.MemberId = member.Id

		if result := txn.Create(&newEvent); result.Error != nil {
			return graphWriteError(result.Error, "creating member event")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating event: %v", err), GetResponseCode(err))
		return
	}

	eventAdds.Inc()

	utils.WriteJsonResponse(w, addEventResponse{EventId: newEvent.Id})
}

func (s *MemberService) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.storage.Write(storage.MemberPhotoPath(memberId), r.Body); err != nil {
		slog.Error("error writing member photo", "member_id", memberId, "error", err)
		http.Error(w, "error saving photo", http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		member, err := resolveOwnedMember(txn, memberId, user.Id, false)
		if err != nil {
			return err
		}

		photoUrl := fmt.Sprintf("/api/v1/member/%v/photo", member.Id)
		if result := txn.Model(&member).Update("photo_url", photoUrl); result.Error != nil {
			return graphWriteError(result.Error, "updating member photo url")
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error saving photo: %v", err), GetResponseCode(err))
		return
	}

	photoUploads.Inc()
	slog.Info("uploaded member photo", "member_id", memberId)

	utils.WriteSuccess(w)
}

func (s *MemberService) DownloadPhoto(w http.ResponseWriter, r *http.Request) {
	memberId, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	photo, err := s.storage.Read(storage.MemberPhotoPath(memberId))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "member photo not found", http.StatusNotFound)
			return
		}
		slog.Error("error reading member photo", "member_id", memberId, "error", err)
		http.Error(w, "error reading photo", http.StatusInternalServerError)
		return
	}
	defer photo.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, photo); err != nil {
		slog.Error("error streaming member photo", "member_id", memberId, "error", err)
	}
}
