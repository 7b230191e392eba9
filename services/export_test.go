package services

import "time"

func (s *LoanService) SetClock(now func() time.Time) { s.now = now }

func (s *PublicationService[T, P]) SetClock(now func() time.Time) { s.now = now }
