package main

import "github.com/paymentops/payment-processor/cmd"

func main() {
	cmd.Execute()
}
