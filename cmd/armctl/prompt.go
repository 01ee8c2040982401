package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type promptReply struct {
	answer string
	err    error
}

type promptRequest struct {
	question string
	reply    chan promptReply
}

// tuiPrompter hands questions from the control loop to the terminal UI and
// blocks until the operator answers or cancels. A cancelled question yields
// input.ErrClosed.
type tuiPrompter struct {
	requests chan promptRequest
}

func newTUIPrompter() *tuiPrompter {
	return &tuiPrompter{requests: make(chan promptRequest)}
}

func (p *tuiPrompter) Prompt(ctx context.Context, question string) (string, error) {
	req := promptRequest{question: question, reply: make(chan promptReply, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.answer, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type promptMsg promptRequest

func waitForPrompt(p *tuiPrompter) tea.Cmd {
	return func() tea.Msg {
		return promptMsg(<-p.requests)
	}
}
