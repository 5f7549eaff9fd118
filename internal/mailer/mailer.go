// Package mailer queues account emails (activation links, password resets)
// for asynchronous delivery. Delivery outcomes are always observable: every
// send is counted and logged, never silently dropped.
package mailer

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"gopkg.in/gomail.v2"
)

// Publisher queues messages for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Sender performs the actual delivery of a single message.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers messages over SMTP.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return s.dialer.DialAndSend(m)
}

// LogSender logs messages instead of delivering them. Used when no SMTP host
// is configured, so development setups still surface what would be sent.
type LogSender struct{}

func (LogSender) Send(msg Message) error {
	log.Printf("[MAILER] (no SMTP configured) to=%s subject=%q body:\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}

// Stats reports delivery outcomes observed so far.
type Stats struct {
	Sent   uint64
	Failed uint64
}

// Queue is the broker-less Publisher: a buffered channel drained by a single
// worker goroutine. Close drains the queue before returning.
type Queue struct {
	sender Sender
	ch     chan Message
	done   chan struct{}
	once   sync.Once

	sent   atomic.Uint64
	failed atomic.Uint64
}

func NewQueue(sender Sender, buffer int) *Queue {
	q := &Queue{
		sender: sender,
		ch:     make(chan Message, buffer),
		done:   make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer close(q.done)
	for msg := range q.ch {
		if err := q.sender.Send(msg); err != nil {
			q.failed.Add(1)
			log.Printf("[MAILER] Delivery failed to %s: %v", msg.To, err)
			continue
		}
		q.sent.Add(1)
		log.Printf("[MAILER] Delivered %q to %s", msg.Subject, msg.To)
	}
}

func (q *Queue) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("mail queue is full")
	}
}

func (q *Queue) Stats() Stats {
	return Stats{Sent: q.sent.Load(), Failed: q.failed.Load()}
}

func (q *Queue) Close() error {
	q.once.Do(func() {
		close(q.ch)
	})
	<-q.done
	return nil
}
