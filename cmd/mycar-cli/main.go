package main

import (
	"mycar-backend/cmd/mycar-cli/commands"
	"mycar-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
