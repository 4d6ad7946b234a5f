// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"time"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// BATCH TURN
// =============================================================================

type batchResult struct {
	reply *backend.Reply
	err   error
}

// runBatch races the one-shot call against the soft warning and the hard
// timeout. Whichever of reply or timeout comes first settles the turn; the
// loser is ignored.
func (s *Session) runBatch(ctx context.Context, cancel context.CancelFunc, turn uint64, text string, soft, hard time.Duration) {
	defer s.batches.Done()
	defer cancel()

	done := make(chan batchResult, 1)
	go func() {
		reply, err := s.backend.Send(ctx, text)
		done <- batchResult{reply: reply, err: err}
	}()

	softTimer := time.NewTimer(soft)
	defer softTimer.Stop()
	hardTimer := time.NewTimer(hard)
	defer hardTimer.Stop()

	start := time.Now()
	for {
		select {
		case <-softTimer.C:
			s.logger.Info().Uint64("turn", turn).Dur("elapsed", time.Since(start)).Msg("batch reply slow")
			s.appendForTurn(turn, model.NewSystemMessage(SoftWarningText), false)

		case <-hardTimer.C:
			s.logger.Warn().Uint64("turn", turn).Dur("timeout", hard).Msg("batch reply timed out")
			s.appendForTurn(turn, model.NewErrorMessage(TimeoutText(hard)), true)
			return

		case res := <-done:
			if res.err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(res.err).Uint64("turn", turn).Msg("batch call failed")
			}
			s.logger.Debug().Uint64("turn", turn).Dur("elapsed", time.Since(start)).Msg("batch turn settled")
			s.appendForTurn(turn, replyMessage(res), true)
			return

		case <-ctx.Done():
			// Cleared or closed; the turn was already settled by whoever cancelled.
			return
		}
	}
}

// appendForTurn appends msg if turn is still the current batch turn. settle
// ends the turn.
func (s *Session) appendForTurn(turn uint64, msg model.Message, settle bool) {
	s.mu.Lock()
	if s.turn != turn || !s.sending {
		s.mu.Unlock()
		return
	}
	s.history.Append(msg)
	if settle {
		s.sending = false
		s.batchCancel = nil
	}
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
}

// replyMessage converts a call outcome into the message to append.
func replyMessage(res batchResult) model.Message {
	if res.err != nil {
		return model.NewErrorMessage("Error: " + res.err.Error())
	}
	if res.reply == nil {
		return model.NewErrorMessage(FallbackErrorText)
	}
	if res.reply.Success && res.reply.Message != "" {
		return model.NewAssistantMessage(res.reply.Message)
	}
	if res.reply.Error != "" {
		return model.NewErrorMessage(res.reply.Error)
	}
	return model.NewErrorMessage(FallbackErrorText)
}
