package daemon

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mirror/internal/logging"
	"mirror/internal/types"
)

// sessionLog is one authoritative transcript. All mutation goes through the
// manager, which bumps the revision and notifies watchers.
type sessionLog struct {
	id         string
	title      string
	forkedFrom string
	revision   uint64
	messages   []*types.Message
	createdAt  time.Time
	updatedAt  time.Time

	nextWatcher int
	watchers    map[int]chan types.RevisionEvent
	// streamingID is the id of the in-progress assistant reply. A stale
	// streaming goroutine whose reply was rolled back compares against it
	// before releasing the busy guard, so it can never clobber the guard
	// owned by a newer stream.
	streamingID string
}

// SessionManager owns every session transcript in memory. The assistant is
// a scripted echo streamer: agent behavior is out of scope, but a transcript
// that mutates token by token is exactly what the sync engine must absorb.
type SessionManager struct {
	mu             sync.Mutex
	sessions       map[string]*sessionLog
	nextSession    int
	nextMessage    int
	streamInterval time.Duration
	logger         logging.Logger
}

func NewSessionManager(logger logging.Logger) *SessionManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionManager{
		sessions:       map[string]*sessionLog{},
		streamInterval: 40 * time.Millisecond,
		logger:         logger,
	}
}

// SetStreamInterval adjusts the simulated token cadence. Tests shrink it.
func (m *SessionManager) SetStreamInterval(interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	m.mu.Lock()
	m.streamInterval = interval
	m.mu.Unlock()
}

func (m *SessionManager) Create(title string) *types.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoLocked(m.createLocked(title, ""))
}

func (m *SessionManager) createLocked(title, forkedFrom string) *sessionLog {
	m.nextSession++
	now := time.Now()
	log := &sessionLog{
		id:         fmt.Sprintf("sess-%d", m.nextSession),
		title:      strings.TrimSpace(title),
		forkedFrom: forkedFrom,
		createdAt:  now,
		updatedAt:  now,
		watchers:   map[int]chan types.RevisionEvent{},
	}
	m.sessions[log.id] = log
	return log
}

func (m *SessionManager) List() []*types.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.SessionInfo, 0, len(m.sessions))
	for _, log := range m.sessions {
		out = append(out, m.infoLocked(log))
	}
	sortSessionInfos(out)
	return out
}

func (m *SessionManager) infoLocked(log *sessionLog) *types.SessionInfo {
	return &types.SessionInfo{
		ID:         log.id,
		Title:      log.title,
		Revision:   log.revision,
		Messages:   len(log.messages),
		ForkedFrom: log.forkedFrom,
		CreatedAt:  log.createdAt,
		UpdatedAt:  log.updatedAt,
	}
}

func (m *SessionManager) Revision(id string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[id]
	if !ok {
		return 0, errNotFound("session not found: " + id)
	}
	return log.revision, nil
}

func (m *SessionManager) Snapshot(id string) (*types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[id]
	if !ok {
		return nil, errNotFound("session not found: " + id)
	}
	messages := make([]*types.Message, len(log.messages))
	for i, msg := range log.messages {
		messages[i] = msg.Clone()
	}
	return &types.Snapshot{
		SessionID:  log.id,
		Revision:   log.revision,
		Messages:   messages,
		ForkedFrom: log.forkedFrom,
	}, nil
}

// Watch subscribes to revision events for a session. The returned cancel
// must be called; events are dropped rather than blocking the mutator.
func (m *SessionManager) Watch(id string) (<-chan types.RevisionEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[id]
	if !ok {
		return nil, nil, errNotFound("session not found: " + id)
	}
	log.nextWatcher++
	key := log.nextWatcher
	ch := make(chan types.RevisionEvent, 16)
	log.watchers[key] = ch
	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := log.watchers[key]; ok {
			delete(log.watchers, key)
			close(existing)
		}
	}
	return ch, cancel, nil
}

func (m *SessionManager) bumpLocked(log *sessionLog) {
	log.revision++
	log.updatedAt = time.Now()
	event := types.RevisionEvent{SessionID: log.id, Revision: log.revision}
	for _, ch := range log.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *SessionManager) newMessageIDLocked(prefix string) string {
	m.nextMessage++
	return fmt.Sprintf("%s-%d", prefix, m.nextMessage)
}

// AppendUser appends a user message and starts the scripted assistant
// response, which streams into the log until done.
func (m *SessionManager) AppendUser(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errInvalid("message text is required")
	}
	m.mu.Lock()
	log, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return errNotFound("session not found: " + id)
	}
	if log.streamingID != "" {
		m.mu.Unlock()
		return &ServiceError{Kind: ServiceErrorConflict, Message: "session is busy"}
	}
	userMsg := &types.Message{
		ID:      m.newMessageIDLocked("u"),
		Kind:    types.MessageKindUser,
		Content: text,
	}
	reply := &types.Message{
		ID:         m.newMessageIDLocked("a"),
		Kind:       types.MessageKindAssistant,
		InProgress: true,
	}
	log.messages = append(log.messages, userMsg, reply)
	log.streamingID = reply.ID
	m.bumpLocked(log)
	interval := m.streamInterval
	m.mu.Unlock()

	go m.streamReply(id, reply.ID, text, interval)
	return nil
}

func (m *SessionManager) streamReply(sessionID, messageID, prompt string, interval time.Duration) {
	words := strings.Fields("You said: " + prompt)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < len(words); i++ {
		<-ticker.C
		m.mu.Lock()
		log, ok := m.sessions[sessionID]
		if !ok {
			m.mu.Unlock()
			return
		}
		msg := findMessageLocked(log, messageID)
		if msg == nil {
			// The streaming turn was rolled back or undone out from
			// under us; stop producing. The guard may already belong
			// to a newer stream started after the rollback.
			if log.streamingID == messageID {
				log.streamingID = ""
			}
			m.mu.Unlock()
			return
		}
		if msg.Content != "" {
			msg.Content += " "
		}
		msg.Content += words[i]
		msg.OutputTokens++
		m.bumpLocked(log)
		m.mu.Unlock()
	}
	m.finishReply(sessionID, messageID)
}

func (m *SessionManager) finishReply(sessionID, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if log.streamingID == messageID {
		log.streamingID = ""
	}
	if msg := findMessageLocked(log, messageID); msg != nil && msg.InProgress {
		msg.InProgress = false
		m.bumpLocked(log)
	}
}

func findMessageLocked(log *sessionLog, messageID string) *types.Message {
	for _, msg := range log.messages {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

// Rollback removes the last turns complete turns from the transcript.
func (m *SessionManager) Rollback(id string, turns int) error {
	if turns <= 0 {
		return errInvalid("turns must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[id]
	if !ok {
		return errNotFound("session not found: " + id)
	}
	userIndices := userMessageIndices(log.messages)
	if turns > len(userIndices) {
		turns = len(userIndices)
	}
	if turns == 0 {
		return errInvalid("nothing to roll back")
	}
	cut := userIndices[len(userIndices)-turns]
	log.messages = log.messages[:cut]
	log.streamingID = ""
	m.bumpLocked(log)
	m.logger.Info("session_rollback",
		logging.F("session_id", id),
		logging.F("turns", turns),
		logging.F("remaining", len(log.messages)),
	)
	return nil
}

// Undo drops the trailing turn, streaming or not.
func (m *SessionManager) Undo(id string) error {
	return m.Rollback(id, 1)
}

// Fork creates a new session whose transcript is everything before the nth
// user message of the source. The fork records its origin informationally.
func (m *SessionManager) Fork(id string, nthUserMessage int, title string) (*types.SessionInfo, error) {
	if nthUserMessage < 0 {
		return nil, errInvalid("nth_user_message must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sessions[id]
	if !ok {
		return nil, errNotFound("session not found: " + id)
	}
	userIndices := userMessageIndices(source.messages)
	if nthUserMessage >= len(userIndices) {
		return nil, errInvalid("no such user message")
	}
	cut := userIndices[nthUserMessage]
	if title == "" {
		title = source.title + " (fork)"
	}
	fork := m.createLocked(title, source.id)
	fork.messages = make([]*types.Message, cut)
	for i := 0; i < cut; i++ {
		fork.messages[i] = source.messages[i].Clone()
	}
	m.bumpLocked(fork)
	m.logger.Info("session_fork",
		logging.F("source", id),
		logging.F("fork", fork.id),
		logging.F("messages", len(fork.messages)),
	)
	return m.infoLocked(fork), nil
}

func userMessageIndices(messages []*types.Message) []int {
	var indices []int
	for i, msg := range messages {
		if msg != nil && msg.Kind == types.MessageKindUser {
			indices = append(indices, i)
		}
	}
	return indices
}

func sortSessionInfos(infos []*types.SessionInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
}
