package main

func main() {
	SetupServeCmd()
	Execute()
}
