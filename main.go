package main

import "github.com/ariachen2020/timerecord/cmd"

func main() {
	cmd.Execute()
}
