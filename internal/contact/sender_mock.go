package contact

type senderMock struct {
	configured bool
	sendErr    error

	notifications []Submission
	confirmations []Submission
}

var _ Sender = (*senderMock)(nil)

func newMockSender() *senderMock {
	return &senderMock{configured: true}
}

func (s *senderMock) Configured() bool {
	return s.configured
}

func (s *senderMock) SendContactNotification(sub Submission) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.notifications = append(s.notifications, sub)
	return nil
}

func (s *senderMock) SendConfirmation(sub Submission) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.confirmations = append(s.confirmations, sub)
	return nil
}
