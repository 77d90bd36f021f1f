package model

// message types exchanged over the websocket
const (
	MsgEnv     = "env"
	MsgStart   = "start"
	MsgStop    = "stop"
	MsgEnvSet  = "envSet"
	MsgStarted = "started"
	MsgStep    = "step"
	MsgStopped = "stopped"
	MsgError   = "error"
	MsgDone    = "done"
)
