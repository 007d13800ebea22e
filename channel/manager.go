// Package channel owns the per-connection secure-channel record and its
// Issue/Renew/Close lifecycle (spec.md §3, §4.3).
package channel

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lAndbz/opcua-processor/ua"
)

// ErrNoChannel is returned by VerifyClose when no channel has been opened
// yet.
var ErrNoChannel = errors.New("channel: no secure channel open")

// ErrChannelIDMismatch is returned by VerifyClose when the SecureClose
// header's ChannelId does not match the stored record (spec.md §4.3).
var ErrChannelIDMismatch = errors.New("channel: SecureClose channel id mismatch")

// ChannelIDAllocator mints channel ids, the internal server facade's
// get_new_channel_id (spec.md §6).
type ChannelIDAllocator interface {
	GetNewChannelID() uint32
}

// Record is the mutable secure-channel state (spec.md §3
// SecureChannelRecord).
type Record struct {
	ChannelID       uint32
	TokenID         uint32
	CreatedAt       time.Time
	RevisedLifetime uint32
	ServerNonce     []byte
}

// Manager guards a single connection's Record behind its own mutex. The
// send path reads the record through Current while already holding the
// send mutex, so this lock is always the inner one of the two.
type Manager struct {
	mu           sync.Mutex
	record       *Record
	nonceLen     int
	maxLifetime  uint32 // 0 = uncapped
	allocator    ChannelIDAllocator
}

// NewManager builds a Manager. A nonceLen below 32 is raised to 32
// (spec.md §9 Open Question (b)); maxLifetimeMS of 0 disables the cap.
func NewManager(allocator ChannelIDAllocator, nonceLen int, maxLifetimeMS uint32) *Manager {
	if nonceLen < 32 {
		nonceLen = 32
	}
	return &Manager{allocator: allocator, nonceLen: nonceLen, maxLifetime: maxLifetimeMS}
}

// HandleOpen implements Issue/Renew per spec.md §4.3: allocate a fresh
// record on first Issue, reuse it on Renew or re-Issue, and in both cases
// bump the token id, timestamp, lifetime and nonce.
func (m *Manager) HandleOpen(reqType ua.SecurityTokenRequestType, requestedLifetimeMS uint32) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		id := m.allocator.GetNewChannelID()
		m.record = &Record{ChannelID: id}
	}

	m.record.TokenID++
	m.record.CreatedAt = time.Now()
	m.record.RevisedLifetime = m.capLifetime(requestedLifetimeMS)

	nonce, err := m.freshNonce()
	if err != nil {
		return Record{}, errors.Wrap(err, "channel: generating server nonce")
	}
	m.record.ServerNonce = nonce

	return *m.record, nil
}

func (m *Manager) capLifetime(requested uint32) uint32 {
	if m.maxLifetime > 0 && requested > m.maxLifetime {
		return m.maxLifetime
	}
	return requested
}

func (m *Manager) freshNonce() ([]byte, error) {
	nonce := make([]byte, m.nonceLen)
	_, err := rand.Read(nonce)
	return nonce, err
}

// VerifyClose checks a SecureClose header's channel id against the
// stored record. On success it drops the record; spec.md §4.3: "Match ⇒
// drop record, terminate the loop." On mismatch the record is left
// untouched (spec.md §8 invariant 6).
func (m *Manager) VerifyClose(channelID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		return ErrNoChannel
	}
	if m.record.ChannelID != channelID {
		return errors.Wrapf(ErrChannelIDMismatch, "have %d want %d", channelID, m.record.ChannelID)
	}
	m.record = nil
	return nil
}

// Current returns a copy of the active record and whether one exists.
// Used by the send path to stamp outgoing ChannelId/TokenId (spec.md
// §4.4 send_response step 4-5).
func (m *Manager) Current() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return Record{}, false
	}
	return *m.record, true
}
