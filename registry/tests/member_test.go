package tests

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestMemberCrud(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}

	birth := date(1950, 3, 14)
	memberId, err := user.createMember(treeId, map[string]interface{}{
		"first_name":  "Robert",
		"last_name":   "Smith",
		"gender":      "MALE",
		"birth_date":  birth,
		"birth_place": "Boston",
		"bio":         "Patriarch of the family.",
	})
	if err != nil {
		t.Fatal(err)
	}

	member, err := user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.FirstName != "Robert" || member.LastName != "Smith" || member.Gender != "MALE" {
		t.Fatalf("invalid member: %v", member)
	}
	if member.TreeId != treeId {
		t.Fatalf("member should belong to tree %v, got %v", treeId, member.TreeId)
	}
	if member.BirthDate == nil || !member.BirthDate.Equal(birth) {
		t.Fatalf("invalid birth date: %v", member.BirthDate)
	}
	if member.BirthPlace != "Boston" || member.Bio != "Patriarch of the family." {
		t.Fatalf("invalid member details: %v", member)
	}
	if member.DeathDate != nil || member.DeathPlace != "" {
		t.Fatalf("unset fields should be empty: %v", member)
	}

	death := date(2020, 1, 2)
	err = user.updateMember(memberId, map[string]interface{}{
		"first_name": "Robert",
		"last_name":  "Smith",
		"gender":     "MALE",
		"birth_date": birth,
		"death_date": death,
	})
	if err != nil {
		t.Fatal(err)
	}

	member, err = user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.DeathDate == nil || !member.DeathDate.Equal(death) {
		t.Fatalf("death date not updated: %v", member.DeathDate)
	}
	// Update replaces all attributes, fields omitted from the request are cleared.
	if member.BirthPlace != "" || member.Bio != "" {
		t.Fatalf("omitted fields should be cleared on update: %v", member)
	}

	if err := user.deleteMember(memberId); err != nil {
		t.Fatal(err)
	}
	if _, err := user.getMember(memberId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted member should be gone: %v", err)
	}
}

func TestMemberValidation(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.createMember(treeId, map[string]interface{}{"first_name": "", "last_name": "Smith"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("member without first name should be rejected: %v", err)
	}

	_, err = user.createMember(treeId, map[string]interface{}{"first_name": "Robert", "last_name": ""})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("member without last name should be rejected: %v", err)
	}

	_, err = user.createMember(treeId, map[string]interface{}{"first_name": "Robert", "last_name": "Smith", "gender": "INVALID"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("member with invalid gender should be rejected: %v", err)
	}

	// Gender defaults to unknown when unspecified.
	memberId, err := user.createMember(treeId, map[string]interface{}{"first_name": "Robert", "last_name": "Smith"})
	if err != nil {
		t.Fatal(err)
	}
	member, err := user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.Gender != "UNKNOWN" {
		t.Fatalf("gender should default to unknown: %v", member.Gender)
	}
}

func TestMemberOwnershipIsolation(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("other")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := owner.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}
	memberId, err := owner.createMember(treeId, map[string]interface{}{"first_name": "Ann", "last_name": "Li"})
	if err != nil {
		t.Fatal(err)
	}

	// Creating a member in someone else's tree is reported the same as a
	// nonexistent tree.
	_, errReal := other.createMember(treeId, map[string]interface{}{"first_name": "In", "last_name": "Truder"})
	if !errors.Is(errReal, ErrNotFound) {
		t.Fatalf("expected not found creating member in unowned tree: %v", errReal)
	}
	_, errFake := other.createMember(uuid.New(), map[string]interface{}{"first_name": "In", "last_name": "Truder"})
	if !errors.Is(errFake, ErrNotFound) {
		t.Fatalf("expected not found creating member in nonexistent tree: %v", errFake)
	}
	if errReal.Error() != errFake.Error() {
		t.Fatalf("unowned and nonexistent trees should yield identical errors: %q vs %q", errReal, errFake)
	}

	_, errReal = other.getMember(memberId)
	if !errors.Is(errReal, ErrNotFound) {
		t.Fatalf("expected not found for unowned member: %v", errReal)
	}
	_, errFake = other.getMember(uuid.New())
	if !errors.Is(errFake, ErrNotFound) {
		t.Fatalf("expected not found for nonexistent member: %v", errFake)
	}
	if errReal.Error() != errFake.Error() {
		t.Fatalf("unowned and nonexistent members should yield identical errors: %q vs %q", errReal, errFake)
	}

	if err := other.updateMember(memberId, map[string]interface{}{"first_name": "X", "last_name": "Y"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found updating unowned member: %v", err)
	}
	if err := other.deleteMember(memberId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found deleting unowned member: %v", err)
	}

	member, err := owner.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.FirstName != "Ann" {
		t.Fatalf("member should be unchanged: %v", member)
	}
}

func TestMemberListOrdering(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}

	// Created out of order to verify sorting.
	for _, name := range [][2]string{{"Cara", "Young"}, {"Alma", "Abbot"}, {"Ben", "Miller"}} {
		_, err := user.createMember(treeId, map[string]interface{}{"first_name": name[0], "last_name": name[1]})
		if err != nil {
			t.Fatal(err)
		}
	}

	members, err := user.listMembers(treeId)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	if members[0].LastName != "Abbot" || members[1].LastName != "Miller" || members[2].LastName != "Young" {
		t.Fatalf("members not ordered by last name: %v", members)
	}
}

func TestMemberDeleteDetachesEdges(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}

	father, err := user.createMember(treeId, map[string]interface{}{"first_name": "Robert", "last_name": "Smith"})
	if err != nil {
		t.Fatal(err)
	}
	mother, err := user.createMember(treeId, map[string]interface{}{"first_name": "Mary", "last_name": "Smith"})
	if err != nil {
		t.Fatal(err)
	}
	child, err := user.createMember(treeId, map[string]interface{}{"first_name": "John", "last_name": "Smith"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := user.addRelationship(father, child, "BIOLOGICAL"); err != nil {
		t.Fatal(err)
	}
	if _, err := user.addRelationship(mother, child, "BIOLOGICAL"); err != nil {
		t.Fatal(err)
	}
	if _, err := user.addPartnership(father, mother, "MARRIAGE"); err != nil {
		t.Fatal(err)
	}
	if _, err := user.addEvent(father, map[string]interface{}{"type": "BIRTH", "place": "Boston"}); err != nil {
		t.Fatal(err)
	}

	if err := user.deleteMember(father); err != nil {
		t.Fatal(err)
	}

	// The deleted member vanishes from every surviving member's graph.
	childInfo, err := user.getMember(child)
	if err != nil {
		t.Fatal(err)
	}
	if len(childInfo.Parents) != 1 || childInfo.Parents[0].Parent.Id != mother {
		t.Fatalf("child should have only the remaining parent: %v", childInfo.Parents)
	}

	motherInfo, err := user.getMember(mother)
	if err != nil {
		t.Fatal(err)
	}
	if len(motherInfo.Partnerships) != 0 {
		t.Fatalf("partnership should be removed with the member: %v", motherInfo.Partnerships)
	}
	if len(motherInfo.Children) != 1 || motherInfo.Children[0].Child.Id != child {
		t.Fatalf("mother's own edges should survive: %v", motherInfo.Children)
	}
}

func TestMemberExternalPhotoUrl(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}

	memberId, err := user.createMember(treeId, map[string]interface{}{
		"first_name": "Ann",
		"last_name":  "Li",
		"photo_url":  "https://example.com/ann.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}

	member, err := user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.PhotoUrl != "https://example.com/ann.jpg" {
		t.Fatalf("photo url not settable via create: got %q", member.PhotoUrl)
	}

	err = user.updateMember(memberId, map[string]interface{}{
		"first_name": "Ann",
		"last_name":  "Li",
		"photo_url":  "https://example.com/ann-2024.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}

	member, err = user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.PhotoUrl != "https://example.com/ann-2024.jpg" {
		t.Fatalf("photo url not settable via update: got %q", member.PhotoUrl)
	}

	// Uploading a photo replaces the external url with the download endpoint.
	if err := user.uploadPhoto(memberId, []byte("image")); err != nil {
		t.Fatal(err)
	}

	member, err = user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.PhotoUrl != fmt.Sprintf("/api/v1/member/%v/photo", memberId) {
		t.Fatalf("upload should point the photo url at the stored photo: got %q", member.PhotoUrl)
	}
}

func TestMemberPhoto(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("other")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("family", "")
	if err != nil {
		t.Fatal(err)
	}
	memberId, err := user.createMember(treeId, map[string]interface{}{"first_name": "Ann", "last_name": "Li"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := user.downloadPhoto(memberId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before upload: %v", err)
	}

	photo := []byte("fake image bytes")
	if err := other.uploadPhoto(memberId, photo); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found uploading to unowned member: %v", err)
	}

	if err := user.uploadPhoto(memberId, photo); err != nil {
		t.Fatal(err)
	}

	downloaded, err := user.downloadPhoto(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(downloaded, photo) {
		t.Fatalf("downloaded photo does not match upload")
	}

	member, err := user.getMember(memberId)
	if err != nil {
		t.Fatal(err)
	}
	if member.PhotoUrl == "" {
		t.Fatal("photo url should be set after upload")
	}
}
