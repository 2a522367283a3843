package emailsvc

func SetSendgridHost(svc *SendgridService, host string) { svc.host = host }
