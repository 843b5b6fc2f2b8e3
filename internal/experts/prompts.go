package experts

import (
	"fmt"
	"strings"

	"story-coach/internal/persona"
)

const noContext = "（背景情報なし）"

func orNoContext(background string) string {
	if strings.TrimSpace(background) == "" {
		return noContext
	}
	return background
}

// expertStreamMessage is the user message of a single streamed expert answer.
func expertStreamMessage(p persona.Persona, question, background string, tone Tone) string {
	return fmt.Sprintf(`
【質問の背景】
%s

【保護者からの質問】
%s

【あなたの役割】
%sとして、あなたの専門分野から見た回答を提供してください。

%s

【回答のお願い】
簡潔かつ分かりやすく、実践的なアドバイスをお願いします。
専門用語を使う場合は、必ず分かりやすく説明してください。
`, orNoContext(background), question, p.Role, persona.ToneInstruction(tone))
}

// sequentialMessage differs from expertStreamMessage only in the closing block.
func sequentialMessage(p persona.Persona, question, background string, tone Tone) string {
	return fmt.Sprintf(`
【質問の背景】
%s

【保護者からの質問】
%s

【あなたの役割】
%sとして、あなたの専門分野から見た回答を提供してください。

%s

【回答形式】
簡潔に、実践的に、保護者に寄り添って回答してください。
専門用語は使っても構いませんが、必ず分かりやすく説明してください。
`, orNoContext(background), question, p.Role, persona.ToneInstruction(tone))
}

// expertReportMessage asks for the sectioned answer used by the blocking path.
func expertReportMessage(p persona.Persona, question, background string) string {
	return fmt.Sprintf(`
【質問の背景】
%s

【保護者からの質問】
%s

【あなたの役割】
%sとして、あなたの専門分野から見た回答を提供してください。

【回答形式】
## %s 専門的見解
（あなたの専門分野からの視点）

## 💡 具体的な方法
（今日から実践できること、ステップバイステップで）

## ⚠️ 注意点
（リスクや限界、こんな場合は専門家に相談を）

## 📚 参考情報
（理論名、研究者名、ガイドライン名など。可能であれば）

※他の専門家と意見が異なる可能性がある場合は、その旨を明記してください。
`, orNoContext(background), question, p.Role, p.Icon)
}

func quickMessage(question, background string) string {
	return fmt.Sprintf(`
【質問の背景】
%s

【保護者からの質問】
%s

【回答のお願い】
簡潔かつ分かりやすく、実践的なアドバイスをお願いします。
`, orNoContext(background), question)
}

// Opinion is one expert's full answer fed into synthesis.
type Opinion struct {
	Persona  persona.Persona `json:"persona"`
	Response string          `json:"response"`
}

func formatOpinions(opinions []Opinion) string {
	parts := make([]string, 0, len(opinions))
	for _, o := range opinions {
		parts = append(parts, fmt.Sprintf("\n◆ %s %sの見解\n%s\n", o.Persona.Icon, o.Persona.Name, o.Response))
	}
	return strings.Join(parts, "\n")
}

func synthesisStreamMessage(question, background string, opinions []Opinion, tone Tone) string {
	return fmt.Sprintf(`
%s

【元の質問】
%s

【背景】
%s

【専門家の意見】
%s

【統合の原則】
1. 共通点を強調：専門家が一致している重要なポイント
2. 実践性：今日から使える具体的な方法
3. バランス：子ども支援と保護者支援の両方
4. 励まし：保護者を支援する姿勢
`, persona.SynthesisLead(tone), question, orNoContext(background), formatOpinions(opinions))
}

// synthesisReportMessage asks for the fixed sectioned layout. The per-domain
// headings carry the icons of the registry personas.
func synthesisReportMessage(reg *persona.Registry, question, background string, opinions []Opinion) string {
	icon := func(id persona.ID) string {
		p, _ := reg.Get(id)
		return p.Icon
	}
	return fmt.Sprintf(`
あなたは医療・教育・心理の統括コーディネーターです。
以下の専門家からの意見を統合し、保護者にとって分かりやすく、
実践的で、かつ専門性の高い回答を作成してください。

【元の質問】
%s

【背景】
%s

【専門家の意見】
%s

【統合の原則】
1. 共通点を強調：専門家間で一致している重要なポイントを明確に
2. 相違点を説明：異なる見解がある場合、その理由と文脈を説明
3. 優先順位：緊急性・重要性の高い順に整理
4. バランス：子ども支援と保護者支援の両方を考慮
5. 実践性：今日から使える具体的な方法を含める

【最終回答の構成】
必ず以下の構成で回答してください：

## 📋 専門家の共通見解
（全専門家が同意している最も重要なポイント）

## 🔍 それぞれの専門的視点

### %s 医学的観点
...

### %s 心理・行動的観点
...

### %s 教育的観点
...

### %s 家族支援の観点
...

## 💡 具体的なアクションプラン
（優先順位順に、今日からできること）

1. **最優先：**
2. **次のステップ：**
3. **長期的に：**

## ⚠️ 注意点・専門家への相談が必要な場合
（この方法が適さないケース、医師・臨床心理士に相談すべき時）

## 📚 参考情報
（専門家が言及した理論、研究、ガイドライン）

---
💙 **保護者の皆さまへ**
（励ましのメッセージ）
`, question, orNoContext(background), formatOpinions(opinions),
		icon(persona.Pediatrician),
		icon(persona.ClinicalPsychologist),
		icon(persona.SpecialEducationTeacher),
		icon(persona.FamilySupportSpecialist))
}
