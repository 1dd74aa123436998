package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/google/uuid"
)

// Tool names the agent pretends to call.
const (
	toolRandomNumber = "random_number"
	toolWait         = "wait"
)

const maxWait = 10 * time.Second

var waitPattern = regexp.MustCompile(`(?i)\bwait\s+(\d+)`)

// sessionState is the side-channel document the agent keeps in sync with
// the client, as {"state": "..."}.
type sessionState struct {
	State string `json:"state"`
}

// step is one event of a reply, optionally preceded by a pause.
type step struct {
	event events.Event
	pause time.Duration
}

// echoAgent answers every run by echoing the last user message. Mentioning
// "random" triggers a random_number tool call; "wait N" triggers a wait
// tool call that pauses the stream for N seconds.
type echoAgent struct {
	// rand returns an integer in [min, max].
	rand func(min, max int) int
	// chunkDelay is the pause between streamed words.
	chunkDelay time.Duration
	newID      func() string
}

func newEchoAgent(rand func(min, max int) int, chunkDelay time.Duration) *echoAgent {
	return &echoAgent{
		rand:       rand,
		chunkDelay: chunkDelay,
		newID:      uuid.NewString,
	}
}

// reply plans the events answering text in a run of threadID.
func (a *echoAgent) reply(threadID, runID, text string) []step {
	messageID := "msg_" + a.newID()
	steps := []step{
		{event: events.NewRunStartedEvent(threadID, runID)},
		{event: events.NewTextMessageStartEvent(messageID, events.WithRole("assistant"))},
	}

	answer := "You said: " + strings.TrimSpace(text)

	if strings.Contains(strings.ToLower(text), "random") {
		n := a.rand(1, 100)
		steps = append(steps, a.toolCall(messageID, toolRandomNumber, `{"min":1,"max":100}`, strconv.Itoa(n), 0)...)
		steps = append(steps, step{event: events.NewStateSnapshotEvent(sessionState{State: "rnd after"})})
		answer += fmt.Sprintf("\n\nYour random number is %d.", n)
	}

	if m := waitPattern.FindStringSubmatch(text); m != nil {
		seconds, _ := strconv.Atoi(m[1])
		pause := min(time.Duration(seconds)*time.Second, maxWait)
		args := fmt.Sprintf(`{"seconds":%d}`, seconds)
		steps = append(steps, a.toolCall(messageID, toolWait, args, "null", pause)...)
		steps = append(steps, step{event: events.NewStateSnapshotEvent(sessionState{State: "wait after"})})
		answer += fmt.Sprintf("\n\nI waited %s.", pause)
	}

	var pause time.Duration
	for _, word := range strings.SplitAfter(answer, " ") {
		if word == "" {
			continue
		}
		steps = append(steps, step{event: events.NewTextMessageContentEvent(messageID, word), pause: pause})
		pause = a.chunkDelay
	}

	steps = append(steps,
		step{event: events.NewTextMessageEndEvent(messageID)},
		step{event: events.NewRunFinishedEvent(threadID, runID)},
	)
	return steps
}

// toolCall plans the lifecycle of one tool call owned by messageID. The
// result arrives after pause.
func (a *echoAgent) toolCall(messageID, name, args, result string, pause time.Duration) []step {
	callID := "call_" + a.newID()
	return []step{
		{event: events.NewToolCallStartEvent(callID, name, events.WithParentMessageID(messageID))},
		{event: events.NewToolCallArgsEvent(callID, args)},
		{event: events.NewToolCallEndEvent(callID)},
		{event: events.NewToolCallResultEvent("msg_"+a.newID(), callID, result), pause: pause},
	}
}
