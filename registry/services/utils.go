package services

import (
	"errors"
	"family_tree/registry/schema"
	"family_tree/registry/storage"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// resolveOwnedTree maps the ownership-collapsed schema errors onto response
// codes: absent and unowned are both 404.
func resolveOwnedTree(txn *gorm.DB, treeId, userId uuid.UUID) (schema.FamilyTree, error) {
	tree, err := schema.GetOwnedTree(treeId, userId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrTreeAccessDenied) {
			return tree, CodedError(err, http.StatusNotFound)
		}
		return tree, CodedError(err, http.StatusInternalServerError)
	}
	return tree, nil
}

func resolveOwnedMember(txn *gorm.DB, memberId, userId uuid.UUID, loadGraph bool) (schema.FamilyMember, error) {
	member, err := schema.GetOwnedMember(memberId, userId, txn, loadGraph)
	if err != nil {
		if errors.Is(err, schema.ErrMemberAccessDenied) {
			return member, CodedError(err, http.StatusNotFound)
		}
		return member, CodedError(err, http.StatusInternalServerError)
	}
	return member, nil
}

func checkMemberAttributes(firstName, lastName, gender string) error {
	if firstName == "" || lastName == "" {
		return CodedError(errors.New("member first and last name must be specified"), http.StatusUnprocessableEntity)
	}
	if err := schema.CheckValidGender(gender); err != nil {
		return CodedError(err, http.StatusUnprocessableEntity)
	}
	return nil
}

func checkDiskUsage(store storage.Storage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 10% of the disk needs to be free or 1Gb, whichever is smaller.
	threshold := min(stats.TotalBytes/10, 1024*oneMib)
	if stats.FreeBytes < threshold {
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		return CodedError(fmt.Errorf("insufficient disk space for upload, usage: %d/%d Mib", used, total), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(store); err != nil {
				slog.Error(err.Error())
				http.Error(w, err.Error(), GetResponseCode(err))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}
