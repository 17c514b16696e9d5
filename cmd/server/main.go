package main

import "krishi-backend/internal/cmd"

func main() {
	cmd.Execute()
}
