package main

import (
	cmd "cktap/cmd/cktap"
)

func main() {
	cmd.Execute()
}
