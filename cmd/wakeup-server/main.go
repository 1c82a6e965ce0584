package main

import "github.com/oshokin/wakeup-call/cmd/wakeup-server/cmd"

func main() {
	cmd.Execute()
}
