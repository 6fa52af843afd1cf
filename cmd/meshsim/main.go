// Command meshsim runs a field of simulated Bluetooth devices that discover
// and greet each other.
package main

func main() {
	Execute()
}
