package main

import "github.com/oshokin/dotnet-bootstrap/cmd/dotnet-bootstrap/cmd"

func main() {
	cmd.Execute()
}
