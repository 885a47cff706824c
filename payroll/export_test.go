package payroll

// LockCount reports how many periods hold a transition mutex.
func (s *PeriodService) LockCount() int { return s.lockCount() }
