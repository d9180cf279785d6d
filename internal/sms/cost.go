package sms

// Cost is the credit price of sending a body of the given segment count to
// every recipient. Either factor being zero yields zero.
func Cost(segments, recipients int) int64 {
	if segments <= 0 || recipients <= 0 {
		return 0
	}
	return int64(segments) * int64(recipients)
}
