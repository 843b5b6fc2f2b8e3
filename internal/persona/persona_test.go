package persona

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_OrderAndCount(t *testing.T) {
	r := Default()
	require.Equal(t, 4, r.Len())
	assert.Equal(t, []ID{ClinicalPsychologist, Pediatrician, SpecialEducationTeacher, FamilySupportSpecialist}, r.IDs())

	list := r.List()
	for i, p := range list {
		assert.Equal(t, r.IDs()[i], p.ID)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Icon)
		assert.NotEmpty(t, p.Expertise)
	}
}

func TestDefault_EveryInstructionCarriesRefusal(t *testing.T) {
	for _, p := range Default().List() {
		assert.True(t, strings.Contains(p.Instruction, "「"+RefusalMessage+"」"), "persona %s", p.ID)
	}
	assert.Contains(t, QuickInstruction(Friendly), RefusalMessage)
	assert.Contains(t, QuickInstruction(Standard), RefusalMessage)
}

func TestRegistry_Get(t *testing.T) {
	r := Default()
	p, ok := r.Get(Pediatrician)
	require.True(t, ok)
	assert.Equal(t, "小児科医", p.Name)

	_, ok = r.Get("astrologer")
	assert.False(t, ok)

	_, err := r.Lookup("astrologer")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_GetByDisplayName(t *testing.T) {
	r := Default()

	p, ok := r.GetByDisplayName("🧠 臨床心理士")
	require.True(t, ok)
	assert.Equal(t, ClinicalPsychologist, p.ID)

	p, ok = r.GetByDisplayName("家族支援専門家")
	require.True(t, ok)
	assert.Equal(t, FamilySupportSpecialist, p.ID)

	// round trip through DisplayName
	for _, want := range r.List() {
		got, ok := r.GetByDisplayName(want.DisplayName())
		require.True(t, ok, want.DisplayName())
		assert.Equal(t, want.ID, got.ID)
	}

	_, ok = r.GetByDisplayName("🧠 臨床心理")
	assert.False(t, ok, "no prefix matching")
	_, ok = r.GetByDisplayName("")
	assert.False(t, ok)
}

func TestRegistry_ListIsACopy(t *testing.T) {
	r := Default()
	list := r.List()
	list[0].Name = "changed"
	list[0].Expertise[0] = "changed"

	p, _ := r.Get(ClinicalPsychologist)
	assert.Equal(t, "臨床心理士", p.Name)
}

func TestNewRegistry_SkipsDuplicates(t *testing.T) {
	r := NewRegistry(Persona{ID: "a", Name: "A"}, Persona{ID: "a", Name: "B"})
	assert.Equal(t, 1, r.Len())
	p, _ := r.Get("a")
	assert.Equal(t, "A", p.Name)
}

func TestTone(t *testing.T) {
	assert.Equal(t, Standard, ParseTone("standard"))
	assert.Equal(t, Friendly, ParseTone("friendly"))
	assert.Equal(t, Friendly, ParseTone("whatever"))
	assert.InDelta(t, 0.8, Friendly.Temperature(), 1e-6)
	assert.InDelta(t, 0.7, Standard.Temperature(), 1e-6)
}

func TestParseCoach(t *testing.T) {
	for _, c := range Coaches() {
		got, err := ParseCoach(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)

		got, err = ParseCoach(c.DisplayName())
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.NotEmpty(t, c.Instruction())
	}

	got, err := ParseCoach("")
	require.NoError(t, err)
	assert.Equal(t, LogicalDoctor, got)

	_, err = ParseCoach("🎩 執事")
	assert.True(t, errors.Is(err, ErrUnknownCoach))
}

func TestParentActionInstruction_UnknownCoachUsesDoctor(t *testing.T) {
	got := ParentActionInstruction(Coach("x"), "e", "c", "p", "acceptable", false, "")
	assert.True(t, strings.HasPrefix(got, LogicalDoctor.Instruction()))
	assert.Contains(t, got, "より良い方法があることを優しく示唆")
	assert.NotContains(t, got, "【参考情報（専門知識）】")
}
