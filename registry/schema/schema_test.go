package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenderValidation(t *testing.T) {
	for _, gender := range []string{Male, Female, Other, Unknown} {
		assert.NoError(t, CheckValidGender(gender))
	}

	assert.Error(t, CheckValidGender(""))
	assert.Error(t, CheckValidGender("male"))
	assert.Error(t, CheckValidGender("NONBINARY"))
}

func TestRelationshipTypeValidation(t *testing.T) {
	for _, relType := range []string{Biological, Adopted, Foster, Step, OtherKin} {
		assert.NoError(t, CheckValidRelationshipType(relType))
	}

	assert.Error(t, CheckValidRelationshipType(""))
	assert.Error(t, CheckValidRelationshipType("GUARDIAN"))
}

func TestPartnershipTypeValidation(t *testing.T) {
	for _, partnershipType := range []string{Marriage, DomesticPartnership, Engagement, Dating, Divorced, Separated, OtherUnion} {
		assert.NoError(t, CheckValidPartnershipType(partnershipType))
	}

	// The generic partnership value is RELATIONSHIP on the wire.
	assert.NoError(t, CheckValidPartnershipType("RELATIONSHIP"))

	assert.Error(t, CheckValidPartnershipType(""))
	assert.Error(t, CheckValidPartnershipType("MARRIED"))
}

func TestEventTypeValidation(t *testing.T) {
	for _, eventType := range []string{BirthEvent, DeathEvent, MarriageEvent, DivorceEvent, GraduationEvent, CareerEvent, MoveEvent, MedicalEvent, OtherEvent} {
		assert.NoError(t, CheckValidEventType(eventType))
	}

	assert.Error(t, CheckValidEventType(""))
	assert.Error(t, CheckValidEventType("RETIREMENT"))
}
