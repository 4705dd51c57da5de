package kafka

import (
	"net"
	"sort"
	"strconv"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/go-gotop/backpack/broker"
)

func kafkaHeaderToMap(h []kafkaGo.Header) broker.Headers {
	m := broker.Headers{}
	for _, v := range h {
		m[v.Key] = string(v.Value)
	}
	return m
}

// mapToKafkaHeader 按 key 排序, 保证输出稳定
func mapToKafkaHeader(m broker.Headers) []kafkaGo.Header {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := make([]kafkaGo.Header, 0, len(m))
	for _, k := range keys {
		h = append(h, kafkaGo.Header{Key: k, Value: []byte(m[k])})
	}
	return h
}

// controller 返回集群 controller 的连接, topic 管理必须发往 controller
func controller(addr string) (*kafkaGo.Conn, error) {
	conn, err := kafkaGo.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	c, err := conn.Controller()
	if err != nil {
		return nil, err
	}
	return kafkaGo.Dial("tcp", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

func CreateTopic(addr string, topic string, partitions int, replicationFactor int) error {
	conn, err := controller(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
}

func DeleteTopic(addr string, topic string) error {
	conn, err := controller(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.DeleteTopics(topic)
}
