package persona

import (
	"errors"
	"fmt"
)

var ErrUnknownCoach = errors.New("unknown coach style")

// Coach is the voice used for parent feedback, situation guides and free
// questions. Unlike the expert personas it carries no specialty.
type Coach string

const (
	LogicalDoctor Coach = "logical_doctor"
	GentleTeacher Coach = "gentle_teacher"
	CheerCoach    Coach = "cheer_coach"
)

type coachInfo struct {
	display     string
	instruction string
}

var coaches = map[Coach]coachInfo{
	LogicalDoctor: {
		display: "🩺 ロジカルドクター",
		instruction: `あなたはASD支援に詳しい小児科医兼臨床心理士です。
科学的根拠を示しつつ、論理的に説明してください。
医学的・心理学的な観点から、具体的で実践的なアドバイスを提供します。
最後に「🔍参考の方向性」を1行で添えてください。
保護者が理解しやすいよう、専門用語は適宜説明を加えてください。`,
	},
	GentleTeacher: {
		display: "🍀 やさしい先生",
		instruction: `あなたは小学校の先生です。
やさしい言葉で、家庭でも実践できるように説明してください。
難しい言葉は使わず、温かいトーンで話してください。
保護者の気持ちに寄り添いながら、日常生活で取り入れやすい工夫を提案します。
「大丈夫ですよ」という安心感を与えることを大切にしてください。`,
	},
	CheerCoach: {
		display: "🌞 応援コーチ",
		instruction: `あなたは明るい発達支援コーチです。
元気な言葉と絵文字で励ましながら、行動の工夫を伝えてください。
「すごいね！」「その気持ちわかるよ！」など、ポジティブな言葉を使います。
保護者の頑張りを認め、前向きな気持ちになれるようなアドバイスをしてください。
小さな成功体験を積み重ねることの大切さを伝えます。`,
	},
}

// Coaches lists the styles in display order.
func Coaches() []Coach { return []Coach{LogicalDoctor, GentleTeacher, CheerCoach} }

// ParseCoach accepts an id or a display name. An empty value selects
// LogicalDoctor.
func ParseCoach(s string) (Coach, error) {
	if s == "" {
		return LogicalDoctor, nil
	}
	if _, ok := coaches[Coach(s)]; ok {
		return Coach(s), nil
	}
	for c, info := range coaches {
		if info.display == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCoach, s)
}

func (c Coach) DisplayName() string { return coaches[c].display }

// Instruction is the system prompt of the style, empty for an unknown one.
func (c Coach) Instruction() string { return coaches[c].instruction }
