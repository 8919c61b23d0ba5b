// cmd/manage/main.go
package main

import "github.com/marketua/marketplace-backend/cmd/manage/commands"

func main() {
	commands.Execute()
}
