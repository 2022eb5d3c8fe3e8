// One-off: go run scripts/genhash.go <password>
// Prints a bcrypt hash at the cost the user service uses, for seeding users.password_hash.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"qrstudio/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		password = strings.TrimRight(line, "\r\n")
	}
	if len(password) < service.MinPasswordLen {
		fmt.Fprintf(os.Stderr, "password must be at least %d characters\n", service.MinPasswordLen)
		os.Exit(1)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), service.PasswordCost)
	if err != nil {
		panic(err)
	}
	fmt.Print(string(h))
}
