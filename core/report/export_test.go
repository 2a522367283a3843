package report

import "time"

func SetNowFn(svc *Service, fn func() time.Time) { svc.nowFn = fn }
