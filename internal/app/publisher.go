package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// outboxPublishers — основной и dead-letter издатели outbox.
type outboxPublishers struct {
	events     domain.OutboxPublisher
	deadLetter domain.OutboxPublisher
	closeFn    func() error
}

// initOutboxPublishers создаёт Kafka-издателей, если заданы брокеры.
// Без брокеров, а также если Kafka недоступна, события пишутся в лог.
func initOutboxPublishers(cfg Config, logger *log.Entry) outboxPublishers {
	fallback := outboxPublishers{
		events:  outbox.NewLogPublisher(logger.WithField("publisher", "log")),
		closeFn: func() error { return nil },
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers are not configured, outbox events go to log")
		return fallback
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return fallback
	}

	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
	}).Info("kafka producer initialized")

	return outboxPublishers{
		events:     kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		deadLetter: kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetter),
		closeFn:    producer.Close,
	}
}

// initPaymentGateway выбирает Razorpay при заданных ключах, иначе mock-шлюз.
func initPaymentGateway(cfg Config, logger *log.Entry) (payment.Gateway, error) {
	if cfg.PaymentsConfigured() {
		gateway, err := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger.WithField("gateway", "razorpay"))
		if err != nil {
			return nil, err
		}
		logger.Info("razorpay payment gateway initialized")
		return gateway, nil
	}

	logger.Warn("razorpay keys are not configured, using mock payment gateway")
	return payment.NewMockGateway(cfg.PaymentMockSecret), nil
}
