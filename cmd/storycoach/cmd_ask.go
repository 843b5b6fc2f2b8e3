package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"story-coach/internal/app"
	"story-coach/internal/experts"
	"story-coach/internal/history"
	"story-coach/internal/persona"
)

var askFlags struct {
	mode        string
	persona     string
	tone        string
	background  string
	team        bool
	interactive bool
	historySize int
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the expert panel a question",
	Long: "ask streams an answer in one of the modes quick, expert, sequential or\n" +
		"comprehensive. --team prints the blocking team report as JSON instead.\n" +
		"--interactive reads one question per line and carries earlier answers\n" +
		"as background.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.StringVar(&askFlags.mode, "mode", string(experts.ModeQuick), "Response mode: quick, expert, sequential, comprehensive")
	f.StringVar(&askFlags.persona, "persona", string(persona.ClinicalPsychologist), "Persona id or display name for --mode=expert")
	f.StringVar(&askFlags.tone, "tone", string(persona.Friendly), "Tone: friendly or standard")
	f.StringVar(&askFlags.background, "background", "", "Extra background for the question")
	f.BoolVar(&askFlags.team, "team", false, "Print the individual and synthesized answers as JSON")
	f.BoolVarP(&askFlags.interactive, "interactive", "i", false, "Read questions from stdin")
	f.IntVar(&askFlags.historySize, "history", 3, "Earlier answers carried as background in interactive mode")
}

func resolvePersona(reg *persona.Registry, s string) (persona.ID, error) {
	if p, ok := reg.Get(persona.ID(s)); ok {
		return p.ID, nil
	}
	if p, ok := reg.GetByDisplayName(s); ok {
		return p.ID, nil
	}
	return "", fmt.Errorf("%w: %s", persona.ErrNotFound, s)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if !askFlags.interactive && len(args) == 0 {
		return fmt.Errorf("a question is required unless --interactive is set")
	}
	mode, err := experts.ParseMode(askFlags.mode)
	if err != nil {
		return err
	}

	return withApp(func(a *app.App) error {
		req := experts.Ask{Mode: mode, Tone: persona.ParseTone(askFlags.tone)}
		if mode == experts.ModeExpert {
			if req.Persona, err = resolvePersona(a.Experts.Registry(), askFlags.persona); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if !askFlags.interactive {
			req.Question = args[0]
			req.Background = askFlags.background
			_, err := answer(cmd, a, req, out)
			return err
		}

		sessionID := uuid.NewString()
		conversations := history.NewManager()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, "> ")
		for scanner.Scan() {
			q := strings.TrimSpace(scanner.Text())
			switch q {
			case "":
				fmt.Fprint(out, "> ")
				continue
			case "/reset":
				conversations.Reset(sessionID)
				fmt.Fprint(out, "history cleared\n> ")
				continue
			case "/quit", "/exit":
				return nil
			}

			req.Question = q
			req.Background = conversations.Background(sessionID, askFlags.background, askFlags.historySize)
			text, err := answer(cmd, a, req, out)
			if err != nil {
				return err
			}
			conversations.Append(sessionID, string(req.Mode), q, text)
			fmt.Fprint(out, "\n> ")
		}
		return scanner.Err()
	})
}

// answer writes the response to out as it arrives and returns its full text.
func answer(cmd *cobra.Command, a *app.App, req experts.Ask, out io.Writer) (string, error) {
	if askFlags.team {
		team := a.Experts.ComprehensiveResponse(cmd.Context(), req.Question, req.Background, nil)
		return team.Synthesized, printJSON(out, team)
	}

	var b strings.Builder
	for chunk := range a.Experts.TextStream(cmd.Context(), req) {
		b.WriteString(chunk)
		if _, err := io.WriteString(out, chunk); err != nil {
			return b.String(), err
		}
	}
	fmt.Fprintln(out)
	return b.String(), nil
}
