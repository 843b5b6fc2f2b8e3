package main

import (
	"fmt"
	"io"
	"iter"

	"github.com/spf13/cobra"

	"story-coach/internal/agents"
	"story-coach/internal/app"
	"story-coach/internal/experts"
	"story-coach/internal/persona"
)

var feedbackFlags struct {
	scene      string
	evaluation string
	hint       string
	stream     bool
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [choice]",
	Short: "Give a child feedback on the choice they picked in a scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eval, err := agents.ParseEvaluation(feedbackFlags.evaluation)
		if err != nil {
			return err
		}
		req := experts.ChoiceFeedback{
			Scene:      feedbackFlags.scene,
			Choice:     args[0],
			Evaluation: eval,
			Hint:       feedbackFlags.hint,
		}
		return withApp(func(a *app.App) error {
			if feedbackFlags.stream {
				return writeStream(cmd.OutOrStdout(), a.Experts.FeedbackStream(cmd.Context(), req))
			}
			text, err := a.Experts.Feedback(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var parentFeedbackFlags struct {
	event       string
	childAction string
	evaluation  string
	coach       string
	detailed    bool
	reference   string
	stream      bool
}

var parentFeedbackCmd = &cobra.Command{
	Use:   "parent-feedback [parent action]",
	Short: "Comment on how a parent reacted to their child",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eval, err := agents.ParseEvaluation(parentFeedbackFlags.evaluation)
		if err != nil {
			return err
		}
		coach, err := persona.ParseCoach(parentFeedbackFlags.coach)
		if err != nil {
			return err
		}
		req := experts.ParentReaction{
			Event:        parentFeedbackFlags.event,
			ChildAction:  parentFeedbackFlags.childAction,
			ParentAction: args[0],
			Evaluation:   eval,
			Coach:        coach,
			Detailed:     parentFeedbackFlags.detailed,
			Reference:    parentFeedbackFlags.reference,
		}
		return withApp(func(a *app.App) error {
			if parentFeedbackFlags.stream {
				return writeStream(cmd.OutOrStdout(), a.Experts.ParentActionFeedbackStream(cmd.Context(), req))
			}
			text, err := a.Experts.ParentActionFeedback(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var guideFlags struct {
	event       string
	scene       string
	childAction string
	coach       string
	options     bool
	stream      bool
}

var guideCmd = &cobra.Command{
	Use:   "guide [parent action]",
	Short: "Explain a parent reaction in depth",
	Long: "guide explains why one of the offered parent reactions helps or not.\n" +
		"--options lists the reactions it knows.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if guideFlags.options {
			for _, o := range experts.ParentOptions {
				fmt.Fprintf(out, "%-14s %s\n", o.Evaluation, o.Text)
			}
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("a parent action is required unless --options is set")
		}
		coach, err := persona.ParseCoach(guideFlags.coach)
		if err != nil {
			return err
		}
		if _, err := experts.LookupParentOption(args[0]); err != nil {
			return err
		}
		req := experts.GuideRequest{
			Event:        guideFlags.event,
			Scene:        guideFlags.scene,
			ChildAction:  guideFlags.childAction,
			ParentAction: args[0],
			Coach:        coach,
		}
		return withApp(func(a *app.App) error {
			if guideFlags.stream {
				return writeStream(out, a.Experts.SituationGuideStream(cmd.Context(), req))
			}
			text, err := a.Experts.SituationGuide(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		})
	},
}

var consultFlags struct {
	coach  string
	stream bool
}

var consultCmd = &cobra.Command{
	Use:   "consult [question]",
	Short: "Answer a parent's question in one coach style",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coach, err := persona.ParseCoach(consultFlags.coach)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			if consultFlags.stream {
				return writeStream(cmd.OutOrStdout(), a.Experts.AnswerParentQuestionStream(cmd.Context(), args[0], coach))
			}
			text, err := a.Experts.AnswerParentQuestion(cmd.Context(), args[0], coach)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	f := feedbackCmd.Flags()
	f.StringVar(&feedbackFlags.scene, "scene", "", "Scene text the child saw")
	f.StringVar(&feedbackFlags.evaluation, "evaluation", string(agents.Appropriate), "appropriate, acceptable or inappropriate")
	f.StringVar(&feedbackFlags.hint, "hint", "", "What the feedback should focus on")
	f.BoolVar(&feedbackFlags.stream, "stream", false, "Print the answer as it arrives")

	f = parentFeedbackCmd.Flags()
	f.StringVar(&parentFeedbackFlags.event, "event", "", "Event name, e.g. 床屋")
	f.StringVar(&parentFeedbackFlags.childAction, "child-action", "", "What the child did")
	f.StringVar(&parentFeedbackFlags.evaluation, "evaluation", string(agents.Appropriate), "appropriate, acceptable or inappropriate")
	f.StringVar(&parentFeedbackFlags.coach, "coach", string(persona.LogicalDoctor), coachUsage)
	f.BoolVar(&parentFeedbackFlags.detailed, "detailed", false, "Ask for the long explanation")
	f.StringVar(&parentFeedbackFlags.reference, "reference", "", "Background knowledge to draw on")
	f.BoolVar(&parentFeedbackFlags.stream, "stream", false, "Print the answer as it arrives")

	f = guideCmd.Flags()
	f.StringVar(&guideFlags.event, "event", "", "Event name")
	f.StringVar(&guideFlags.scene, "scene", "", "Scene description")
	f.StringVar(&guideFlags.childAction, "child-action", "", "What the child did")
	f.StringVar(&guideFlags.coach, "coach", string(persona.LogicalDoctor), coachUsage)
	f.BoolVar(&guideFlags.options, "options", false, "List the parent reactions and exit")
	f.BoolVar(&guideFlags.stream, "stream", false, "Print the answer as it arrives")

	f = consultCmd.Flags()
	f.StringVar(&consultFlags.coach, "coach", string(persona.LogicalDoctor), coachUsage)
	f.BoolVar(&consultFlags.stream, "stream", false, "Print the answer as it arrives")
}

const coachUsage = "Coach style: logical_doctor, gentle_teacher or cheer_coach"

func writeStream(out io.Writer, seq iter.Seq[string]) error {
	for chunk := range seq {
		if _, err := io.WriteString(out, chunk); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}
