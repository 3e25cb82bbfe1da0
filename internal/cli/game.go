package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordbattles/internal/api/request"
	"github.com/mcoot/wordbattles/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameSubmitCmd())
	cmd.AddCommand(newGameInputCmd())
	cmd.AddCommand(newGameDeleteCmd())
	cmd.AddCommand(newGameTransitionCmd("start", "Start the timed session"))
	cmd.AddCommand(newGameTransitionCmd("shuffle", "Deal a fresh rack (running sessions only)"))
	cmd.AddCommand(newGameTransitionCmd("end", "End the running session early"))
	cmd.AddCommand(newGameTransitionCmd("play-again", "Deal a new session after the last one ended"))

	return cmd
}

func gamePath(id string, parts ...string) string {
	return "/api/v1/games/" + strings.Join(append([]string{id}, parts...), "/")
}

func newGameCreateCmd() *cobra.Command {
	var (
		req request.CreateGameRequest
		ai  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game with a freshly dealt rack",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game
			if cmd.Flags().Changed("ai") {
				req.AIEnabled = &ai
			}

			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Duration, "duration", 0, "Session length in seconds (server default when 0)")
	cmd.Flags().IntVar(&req.RackSize, "rack-size", 0, "Number of letters dealt (server default when 0)")
	cmd.Flags().IntVar(&req.MinLength, "min-length", 0, "Minimum word length (server default when 0)")
	cmd.Flags().BoolVar(&ai, "ai", false, "Show the AI opponent panel (server default when unset)")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game-id>",
		Short: "Get current game state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Get(cmd.Context(), gamePath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// newGameTransitionCmd builds the body-less POST commands that return the game
func newGameTransitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <game-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Post(cmd.Context(), gamePath(args[0], action), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <game-id> [word]",
		Short: "Submit a word, or the pending input when no word is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.SubmitRequest{}
			if len(args) == 2 {
				req.Word = args[1]
			}

			var result response.SubmitResponse

			if err := client.Post(cmd.Context(), gamePath(args[0], "submit"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input <game-id> <letter|backspace|clear>",
		Short: "Edit the pending input one keystroke at a time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req request.InputRequest

			switch key := args[1]; key {
			case request.InputBackspace, request.InputClear:
				req.Action = key
			default:
				if len([]rune(key)) != 1 {
					return fmt.Errorf("expected a single letter, backspace, or clear")
				}
				req.Action = request.InputAdd
				req.Letter = key
			}

			var result response.Game

			if err := client.Post(cmd.Context(), gamePath(args[0], "input"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <game-id>",
		Short: "Tear down a game, discarding any running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), gamePath(args[0])); err != nil {
				return err
			}

			output(cmd).PrintMessage("Game deleted")
			return nil
		},
	}
}
