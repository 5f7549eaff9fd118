package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/trulyexpense/backend/internal/mailer"
)

// mailworker drains the AMQP mail queue and delivers messages over SMTP.
// Run it alongside the API server when AMQP_URL is set.
func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("amqp.url", "AMQP_URL")
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.username", "SMTP_USERNAME")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("smtp.from", "SMTP_FROM")

	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "noreply@trulyexpense.com")
	viper.SetDefault("mailer.exchange", "mail")
	viper.SetDefault("mailer.queue", "mail.outbound")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	url := viper.GetString("amqp.url")
	if url == "" {
		log.Fatal("AMQP_URL is required for the mail worker")
	}

	client, err := mailer.NewAMQPClient(url, viper.GetString("mailer.exchange"), viper.GetString("mailer.queue"))
	if err != nil {
		log.Fatalf("Failed to connect mail queue: %v", err)
	}
	defer client.Close()

	var sender mailer.Sender
	if host := viper.GetString("smtp.host"); host != "" {
		sender = mailer.NewSMTPSender(host, viper.GetInt("smtp.port"),
			viper.GetString("smtp.username"), viper.GetString("smtp.password"), viper.GetString("smtp.from"))
	} else {
		log.Println("No SMTP host configured, outbound mail will be logged only")
		sender = mailer.LogSender{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Mail worker started")
	if err := client.Consume(ctx, func(msg mailer.Message) error {
		if err := sender.Send(msg); err != nil {
			log.Printf("[MAILER] Delivery failed to %s: %v", msg.To, err)
			return err
		}
		log.Printf("[MAILER] Delivered %q to %s", msg.Subject, msg.To)
		return nil
	}); err != nil {
		log.Fatalf("Consumer stopped: %v", err)
	}

	log.Println("Mail worker stopped")
}
