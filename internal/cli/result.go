package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/domain"
	"github.com/mrz1836/warden/internal/engine"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// Result is the structured envelope every mutating command returns.
// On rejection the on-disk state is byte-identical to before the call.
type Result struct {
	OK         bool                       `json:"ok"`
	Code       wardenerrors.Code          `json:"code"`
	Message    string                     `json:"message,omitempty"`
	State      *domain.PacketRuntimeState `json:"state_snapshot,omitempty"`
	NextStates []string                   `json:"next_states,omitempty"`
}

// emitResult renders the envelope for an engine call and propagates the
// error so the process exits with the contract code.
func emitResult(cmd *cobra.Command, flags *GlobalFlags, st *domain.PacketRuntimeState, message string, err error) error {
	res := Result{
		OK:      err == nil,
		Code:    wardenerrors.CodeFor(err),
		Message: message,
		State:   st,
	}
	if err != nil {
		res.Message = err.Error()
		if st != nil {
			res.NextStates = nextStates(st)
		}
	}

	if flags.Output == OutputJSON {
		data, merr := json.MarshalIndent(res, "", "  ")
		if merr != nil {
			return merr
		}
		cmd.Println(string(data))
		return err
	}

	if err != nil {
		cmd.PrintErrf("error [%s]: %s\n", res.Code, res.Message)
		return err
	}
	if message != "" {
		cmd.Println(message)
	}
	if st != nil {
		cmd.Printf("status: %s", st.Status)
		if st.AssignedTo != "" {
			cmd.Printf("  assigned_to: %s", st.AssignedTo)
		}
		cmd.Println()
	}
	return nil
}

// nextStates lists the statuses reachable from the packet's current status.
func nextStates(st *domain.PacketRuntimeState) []string {
	targets := engine.ValidTransitions[st.Status]
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, string(t))
	}
	return out
}

// printJSON renders any value as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
