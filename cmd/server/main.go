package main

import "github.com/eleven-am/formpulse/internal/bootstrap"

func main() {
	bootstrap.Run()
}
