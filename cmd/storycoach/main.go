// storycoach is the command-line front end of the social-story coach:
// scenes, parent situations, expert answers and cache maintenance.
//
// Usage:
//
//	storycoach scene --topic=toilet --index=0 [--variation] [--force-new]
//	storycoach situation --topic=park
//	storycoach ask --mode=comprehensive "質問"
//	storycoach feedback --scene="..." --evaluation=acceptable "選んだ行動"
//	storycoach parent-feedback --event=床屋 --child-action="..." [--detailed] "対応"
//	storycoach guide --options | guide --coach=gentle_teacher "対応"
//	storycoach consult --coach=cheer_coach "質問"
//	storycoach experts
//	storycoach cache stats|purge|clear
//	storycoach report [--date=2025-05-01]
//	storycoach serve
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
