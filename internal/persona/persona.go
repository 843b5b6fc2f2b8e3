package persona

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by callers that turn a failed lookup into an error.
var ErrNotFound = errors.New("persona not found")

// ID is the stable identifier of an expert persona.
type ID string

const (
	ClinicalPsychologist    ID = "clinical_psychologist"
	Pediatrician            ID = "pediatrician"
	SpecialEducationTeacher ID = "special_education_teacher"
	FamilySupportSpecialist ID = "family_support_specialist"
)

// Persona описывает эксперта: отображаемое имя, иконку и системную инструкцию.
type Persona struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Role        string   `json:"role"`
	Expertise   []string `json:"expertise"`
	Instruction string   `json:"-"`
}

// DisplayName renders "icon name", the form shown in selection lists.
func (p Persona) DisplayName() string {
	return p.Icon + " " + p.Name
}

func (p Persona) clone() Persona {
	p.Expertise = append([]string(nil), p.Expertise...)
	return p
}

// Registry is read-only after construction.
type Registry struct {
	order []ID
	byID  map[ID]Persona
}

func NewRegistry(personas ...Persona) *Registry {
	r := &Registry{byID: make(map[ID]Persona, len(personas))}
	for _, p := range personas {
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.order = append(r.order, p.ID)
		r.byID[p.ID] = p.clone()
	}
	return r
}

func (r *Registry) Get(id ID) (Persona, bool) {
	p, ok := r.byID[id]
	return p.clone(), ok
}

// Lookup is like Get but returns ErrNotFound on a miss.
func (r *Registry) Lookup(id ID) (Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.clone(), nil
}

// GetByDisplayName accepts "icon name" or a bare name and matches the name
// part exactly. There is no fuzzy matching.
func (r *Registry) GetByDisplayName(display string) (Persona, bool) {
	name := display
	if _, after, found := strings.Cut(display, " "); found {
		name = after
	}
	for _, id := range r.order {
		if p := r.byID[id]; p.Name == name {
			return p.clone(), true
		}
	}
	return Persona{}, false
}

// List returns personas in registry order.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].clone())
	}
	return out
}

func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }

// Default returns the four-expert registry used by the application.
func Default() *Registry {
	return NewRegistry(
		Persona{
			ID:          ClinicalPsychologist,
			Name:        "臨床心理士",
			Icon:        "🧠",
			Role:        "ASD専門の臨床心理士（経験20年）",
			Expertise:   []string{"応用行動分析(ABA)", "TEACCH", "SST", "感覚統合療法"},
			Instruction: clinicalPsychologistInstruction,
		},
		Persona{
			ID:          Pediatrician,
			Name:        "小児科医",
			Icon:        "⚕️",
			Role:        "発達障害専門の小児科医",
			Expertise:   []string{"医学的知見", "神経学", "併存症", "発達評価"},
			Instruction: pediatricianInstruction,
		},
		Persona{
			ID:          SpecialEducationTeacher,
			Name:        "特別支援教育専門家",
			Icon:        "🏫",
			Role:        "特別支援教育歴15年のベテラン教師",
			Expertise:   []string{"IEP", "合理的配慮", "インクルーシブ教育", "UD"},
			Instruction: specialEducationTeacherInstruction,
		},
		Persona{
			ID:          FamilySupportSpecialist,
			Name:        "家族支援専門家",
			Icon:        "💙",
			Role:        "家族全体を支援する家族療法の専門家",
			Expertise:   []string{"ペアトレ", "保護者メンタルヘルス", "きょうだい支援", "夫婦連携"},
			Instruction: familySupportSpecialistInstruction,
		},
	)
}
