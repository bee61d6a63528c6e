package iocli

//go:generate go tool moq -out io_mock.go . IO

// IO is the terminal as the commands see it
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
