package commands

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"seattle-events/internal/auth"
	"seattle-events/internal/config"
)

const defaultAuthFile = "auth.secret"

// HashPassword handles the hash-password subcommand. Passwords are read
// without echo when in is a terminal.
func HashPassword(args []string, cfg config.Config, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(out)
	path := cfg.AuthFile
	if path == "" {
		path = defaultAuthFile
	}
	fs.StringVar(&path, "file", path, "auth file to write")
	overwrite := fs.Bool("overwrite", false, "overwrite an existing auth file")
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: seattle-events hash-password [OPTIONS]\n\n")
		fmt.Fprintf(out, "Writes user:hash (Argon2id) for HTTP Basic Auth.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := newPrompter(in, out)
	user, err := p.line("Enter username: ")
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	if user == "" {
		return errors.New("username cannot be empty")
	}
	password, err := p.secret("Enter password:   ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := p.secret("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := auth.WriteFile(path, user, password, *overwrite); err != nil {
		if errors.Is(err, auth.ErrAuthFileExists) {
			return fmt.Errorf("%s exists (use -overwrite to replace it)", path)
		}
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

type prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	tty    bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{reader: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) secret(prompt string) (string, error) {
	if !p.tty {
		return p.line(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
