package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[FulfillOrderMessage] = (*FulfillOrderCommand)(nil)
	_ gocmd.Commander[SaveSessionMessage]  = (*SaveSessionCommand)(nil)
)
