package conf

type lexState int

const (
	stateInit lexState = iota
	stateKeyOpen
	stateKeyClosed
	stateSeparator
	stateValueOpen
	stateValueClosed
)

// lineLexer splits one line into a key and a value. It reads the input
// without modifying it; escape sequences are resolved into fresh buffers.
type lineLexer struct {
	line    int
	state   lexState
	inQuote bool
	escaped bool
	key     []byte
	value   []byte

	// onKey runs once the key token is complete, before the rest of the
	// line is looked at.
	onKey func(key string) error
}

// lex returns ok=false for blank and comment-only lines.
func (l *lineLexer) lex(text string) (key, value string, ok bool, err error) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		col := i + 1

		if l.escaped {
			l.escaped = false
			if err := l.literal(c, col); err != nil {
				return "", "", false, err
			}
			continue
		}

		if c == '\\' {
			if err := l.open(col); err != nil {
				return "", "", false, err
			}
			l.escaped = true
			continue
		}

		if l.inQuote {
			if c == '"' {
				l.inQuote = false
				if err := l.close(); err != nil {
					return "", "", false, err
				}
				continue
			}
			l.appendByte(c)
			continue
		}

		switch c {
		case ' ', '\t', '\r':
			if l.state == stateKeyOpen || l.state == stateValueOpen {
				if err := l.close(); err != nil {
					return "", "", false, err
				}
			}
		case '=':
			switch l.state {
			case stateKeyOpen:
				if err := l.close(); err != nil {
					return "", "", false, err
				}
				l.state = stateSeparator
			case stateKeyClosed:
				l.state = stateSeparator
			default:
				return "", "", false, l.errorf(col, UnexpectedChar, "unexpected '='")
			}
		case '#':
			return l.finish()
		case '"':
			switch l.state {
			case stateInit:
				l.state = stateKeyOpen
			case stateSeparator:
				l.state = stateValueOpen
			default:
				return "", "", false, l.errorf(col, UnexpectedChar, "unexpected quote")
			}
			l.inQuote = true
		default:
			if err := l.literal(c, col); err != nil {
				return "", "", false, err
			}
		}
	}
	return l.finish()
}

// open starts a token at col if none is open yet.
func (l *lineLexer) open(col int) error {
	switch l.state {
	case stateInit:
		l.state = stateKeyOpen
	case stateSeparator:
		l.state = stateValueOpen
	case stateKeyClosed, stateValueClosed:
		return l.errorf(col, UnexpectedToken, "unexpected token")
	}
	return nil
}

func (l *lineLexer) literal(c byte, col int) error {
	if err := l.open(col); err != nil {
		return err
	}
	l.appendByte(c)
	return nil
}

func (l *lineLexer) appendByte(c byte) {
	if l.state == stateKeyOpen {
		l.key = append(l.key, c)
	} else {
		l.value = append(l.value, c)
	}
}

func (l *lineLexer) close() error {
	switch l.state {
	case stateKeyOpen:
		l.state = stateKeyClosed
		if l.onKey != nil {
			return l.onKey(string(l.key))
		}
	case stateValueOpen:
		l.state = stateValueClosed
	}
	return nil
}

func (l *lineLexer) finish() (string, string, bool, error) {
	if l.inQuote {
		return "", "", false, l.errorf(0, UnterminatedQuote, "missing closing quote")
	}
	switch l.state {
	case stateInit:
		return "", "", false, nil
	case stateKeyOpen, stateKeyClosed:
		if err := l.close(); err != nil {
			return "", "", false, err
		}
		return "", "", false, l.errorf(0, MissingSeparator, "missing '='")
	case stateSeparator:
		return "", "", false, l.errorf(0, MissingValue, "missing value")
	}
	return string(l.key), string(l.value), true, nil
}

func (l *lineLexer) errorf(col int, kind ParseErrorKind, msg string) error {
	return &ParseError{Line: l.line, Column: col, Kind: kind, Msg: msg}
}
