// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// maxQuestionBytes bounds a question read from stdin.
const maxQuestionBytes = 64 << 10

// ReadQuestion joins args into the question. With no args, or the single
// arg "-", the question is read from stdin unless stdin is a terminal.
func ReadQuestion(args []string, stdin io.Reader, stdinIsTTY bool) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if stdinIsTTY {
		return "", usageError("no question given")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxQuestionBytes+1))
	if err != nil {
		return "", fmt.Errorf("read question: %w", err)
	}
	if len(data) > maxQuestionBytes {
		return "", usageError("question is longer than %d bytes", maxQuestionBytes)
	}
	return util.NormalizeInput(string(data)), nil
}

// HandleAsk runs a single turn and prints the reply. A failed session or
// turn returns an *ExitError with ExitGeneralError.
func HandleAsk(ctx context.Context, env *Env, question string, reveal markdown.Reveal) error {
	if util.IsBlank(question) {
		return usageError("question is empty")
	}
	if err := env.InitSession(ctx); err != nil {
		return err
	}
	if _, err := env.runTurn(ctx, question, reveal); err != nil {
		return &ExitError{Code: ExitGeneralError, Err: err, Printed: true}
	}
	return nil
}
