package tests

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestTreeCreateAndList(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	trees, err := user.listTrees()
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 0 {
		t.Fatalf("new user should have no trees, got %d", len(trees))
	}

	var treeIds []uuid.UUID
	for i := 0; i < 3; i++ {
		treeId, err := user.createTree(fmt.Sprintf("tree%d", i), fmt.Sprintf("description %d", i))
		if err != nil {
			t.Fatal(err)
		}
		treeIds = append(treeIds, treeId)
	}

	trees, err = user.listTrees()
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 3 {
		t.Fatalf("expected 3 trees, got %d", len(trees))
	}

	// Most recently updated first.
	if trees[0].Id != treeIds[2] || trees[1].Id != treeIds[1] || trees[2].Id != treeIds[0] {
		t.Fatalf("trees not ordered by last update: %v", trees)
	}

	for _, tree := range trees {
		if tree.CreatedAt.IsZero() || tree.UpdatedAt.IsZero() {
			t.Fatalf("tree timestamps not populated: %v", tree)
		}
	}

	// Updating the oldest tree moves it to the front of the list.
	if err := user.updateTree(treeIds[0], "tree0-renamed", "updated"); err != nil {
		t.Fatal(err)
	}

	trees, err = user.listTrees()
	if err != nil {
		t.Fatal(err)
	}
	if trees[0].Id != treeIds[0] || trees[0].Name != "tree0-renamed" || trees[0].Description != "updated" {
		t.Fatalf("updated tree should be listed first: %v", trees)
	}
	if !trees[0].UpdatedAt.After(trees[0].CreatedAt) {
		t.Fatal("update should bump the updated at timestamp")
	}
}

func TestTreeNameValidation(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.createTree("", "no name")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("creating a tree without a name should fail: %v", err)
	}

	treeId, err := user.createTree("tree", "")
	if err != nil {
		t.Fatal(err)
	}

	err = user.updateTree(treeId, "", "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("updating a tree to an empty name should fail: %v", err)
	}
}

func TestTreeOwnershipIsolation(t *testing.T) {
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

	trees, err := other.listTrees()
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 0 {
		t.Fatal("trees must not be visible to other users")
	}

	_, errReal := other.getTree(treeId)
	if !errors.Is(errReal, ErrNotFound) {
		t.Fatalf("expected not found for unowned tree: %v", errReal)
	}

	_, errFake := other.getTree(uuid.New())
	if !errors.Is(errFake, ErrNotFound) {
		t.Fatalf("expected not found for nonexistent tree: %v", errFake)
	}

	// An existing tree owned by someone else and a tree that never existed
	// must be indistinguishable.
	if errReal.Error() != errFake.Error() {
		t.Fatalf("unowned and nonexistent trees should yield identical errors: %q vs %q", errReal, errFake)
	}

	if err := other.updateTree(treeId, "hijacked", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found updating unowned tree: %v", err)
	}

	if err := other.deleteTree(treeId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found deleting unowned tree: %v", err)
	}

	// The owner is unaffected by the failed attempts.
	tree, err := owner.getTree(treeId)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Name != "family" {
		t.Fatalf("tree should be unchanged: %v", tree)
	}
}

func TestTreeRequiresLogin(t *testing.T) {
	env := setupTestEnv(t)

	anon := env.newClient()

	if _, err := anon.listTrees(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized: %v", err)
	}

	if _, err := anon.createTree("tree", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized: %v", err)
	}
}

func TestTreeCascadeDelete(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	treeId, err := user.createTree("doomed", "")
	if err != nil {
		t.Fatal(err)
	}
	keptTreeId, err := user.createTree("kept", "")
	if err != nil {
		t.Fatal(err)
	}

	parent, err := user.createMember(treeId, map[string]interface{}{"first_name": "Ann", "last_name": "Li"})
	if err != nil {
		t.Fatal(err)
	}
	child, err := user.createMember(treeId, map[string]interface{}{"first_name": "Bo", "last_name": "Li"})
	if err != nil {
		t.Fatal(err)
	}
	keptMember, err := user.createMember(keptTreeId, map[string]interface{}{"first_name": "Cy", "last_name": "Wu"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := user.addRelationship(parent, child, "BIOLOGICAL"); err != nil {
		t.Fatal(err)
	}
	if _, err := user.addEvent(parent, map[string]interface{}{"type": "BIRTH"}); err != nil {
		t.Fatal(err)
	}

	if err := user.deleteTree(treeId); err != nil {
		t.Fatal(err)
	}

	if _, err := user.getTree(treeId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted tree should be gone: %v", err)
	}
	if _, err := user.getMember(parent); !errors.Is(err, ErrNotFound) {
		t.Fatalf("members of deleted tree should be gone: %v", err)
	}
	if _, err := user.getMember(child); !errors.Is(err, ErrNotFound) {
		t.Fatalf("members of deleted tree should be gone: %v", err)
	}

	// Other trees are untouched.
	kept, err := user.getTree(keptTreeId)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept.Members) != 1 || kept.Members[0].Id != keptMember {
		t.Fatalf("unrelated tree should be unaffected: %v", kept)
	}

	trees, err := user.listTrees()
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 1 || trees[0].Id != keptTreeId {
		t.Fatalf("only the kept tree should remain: %v", trees)
	}
}
