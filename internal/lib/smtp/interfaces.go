// Package smtp: транспорт SMTP и сборка MIME-писем для сервиса отправки почты.
package smtp

import "io"

// Client интерфейс SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface интерфейс SMTP транспорта.
type TransportInterface interface {
	Connect() (Client, error)
	Sender() string
}
