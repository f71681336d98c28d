package telegram

import "sync"

type uploadMode int

const (
	uploadOff uploadMode = iota
	uploadShared
	uploadChannel
)

type postKind int

const (
	postText postKind = iota
	postPhoto
	postVideo
	postDocument
)

// pendingPost holds admin content waiting for a channel selection
type pendingPost struct {
	Kind    postKind
	Text    string
	FileID  string
	Caption string
}

// session tracks the admin's multi-step flows between updates. There is
// exactly one admin, so one session is enough.
type session struct {
	mu           sync.Mutex
	mode         uploadMode
	targetID     int64
	uploaded     int
	awaitChannel bool
	awaitPost    bool
	post         *pendingPost
}

func (s *session) beginUpload(mode uploadMode, targetID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.targetID = targetID
	s.uploaded = 0
}

// endUpload closes the upload flow and reports the mode it was in and
// how many images came in
func (s *session) endUpload() (uploadMode, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode, n := s.mode, s.uploaded
	s.mode = uploadOff
	s.targetID = 0
	s.uploaded = 0
	return mode, n
}

// uploadTarget reports the active upload mode and its channel
func (s *session) uploadTarget() (uploadMode, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.targetID
}

func (s *session) noteUploaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded++
}

func (s *session) expectChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitChannel = true
}

// takeChannelExpected consumes the forward-a-channel state
func (s *session) takeChannelExpected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.awaitChannel
	s.awaitChannel = false
	return was
}

func (s *session) channelExpected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitChannel
}

func (s *session) expectPost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitPost = true
	s.post = nil
}

func (s *session) postExpected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitPost
}

// setPost stores captured content and ends the awaiting state
func (s *session) setPost(p *pendingPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitPost = false
	s.post = p
}

// takePost consumes the captured content
func (s *session) takePost() *pendingPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.post
	s.post = nil
	return p
}
