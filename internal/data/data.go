package data

import (
	"fmt"
	"strconv"

	"bonanza/internal/conf"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	kredis "github.com/yola1107/kratos/v2/library/db/redis"
	kxorm "github.com/yola1107/kratos/v2/library/db/xorm"
	"github.com/yola1107/kratos/v2/library/mq/rabbitmq"
	"github.com/yola1107/kratos/v2/log"
	"xorm.io/xorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedis,
	NewMysql,
	NewRabbitMQ,
	NewBackend,
	NewSessionRepo,
	sessionSet,
	NewJournalRepo,
	NewPublisher,
)

// Data holds the shared clients. Each one is optional: a missing address leaves it nil
// and the repos built on it degrade instead of failing the process.
type Data struct {
	db  *xorm.Engine
	rdb redis.UniversalClient
	mq  *amqp.Connection
	log *log.Helper
}

// NewData .
func NewData(c *conf.Data, logger log.Logger, db *xorm.Engine, rdb redis.UniversalClient, mq *amqp.Connection) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))
	cleanup := func() {
		helper.Info("closing the data resources")
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				helper.Errorf("close redis: %v", err)
			}
		}
	}
	return &Data{
		db:  db,
		rdb: rdb,
		mq:  mq,
		log: helper,
	}, cleanup, nil
}

func NewRedis(c *conf.Data, logger log.Logger) redis.UniversalClient {
	if c.Redis == nil || c.Redis.Addr == "" {
		log.NewHelper(logger).Warn("redis not configured, session gate is open")
		return nil
	}
	return kredis.NewClient(kredis.WithAddress(c.Redis.Addr))
}

func NewMysql(c *conf.Data, logger log.Logger) (*xorm.Engine, func(), error) {
	if c.Database == nil || c.Database.Source == "" {
		log.NewHelper(logger).Warn("database not configured, spin journal goes to the log")
		return nil, func() {}, nil
	}
	engine, err := kxorm.NewEngine(
		kxorm.WithDriver(c.Database.Driver),
		kxorm.WithDataSource(c.Database.Source),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := engine.Sync(new(spinJournal)); err != nil {
		engine.Close()
		return nil, nil, fmt.Errorf("sync spin journal: %w", err)
	}
	return engine, func() { engine.Close() }, nil
}

// NewRabbitMQ dials the broker used for spin notifications.
func NewRabbitMQ(c *conf.Data, logger log.Logger) (*amqp.Connection, func(), error) {
	if c.Rabbitmq == nil || c.Rabbitmq.Host == "" {
		log.NewHelper(logger).Warn("rabbitmq not configured, notifications stay local")
		return nil, func() {}, nil
	}
	conn, err := amqp.Dial(rabbitOptions(c.Rabbitmq).BuildURL())
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, func() { conn.Close() }, nil
}

func rabbitOptions(c *conf.Data_Rabbitmq) rabbitmq.Options {
	opts := rabbitmq.DefaultOptions()
	opts.Host = c.Host
	if c.Port > 0 {
		opts.Port = strconv.FormatInt(c.Port, 10)
	}
	if c.Username != "" {
		opts.Username, opts.Password = c.Username, c.Password
	}
	if c.Vhost != "" {
		opts.VHost = c.Vhost
	}
	return opts
}
