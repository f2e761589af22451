package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tripweaver/tripweaver/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive REPL against the assistant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.store.Close()

		fmt.Println("TripWeaver travel assistant. Type 'exit' to quit.")

		var history chat.History
		var hits, misses int

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("\nyou> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			answer, err := rt.engine.Answer(ctx, line, history)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			history = answer.History

			badge := "miss"
			if answer.CacheHit {
				hits++
				badge = fmt.Sprintf("hit %.2f", answer.HitSimilarity)
			} else {
				misses++
			}
			if answer.Compacted {
				fmt.Println("(older conversation summarized)")
			}
			fmt.Printf("assistant [cache %s]> %s\n", badge, answer.Response)
			for _, src := range answer.Sources {
				fmt.Printf("  source: %s (%s, %.2f)\n", src.Name, src.Type, src.Score)
			}
		}

		fmt.Printf("\ncache: %d hits, %d misses\n", hits, misses)
		return scanner.Err()
	},
}
