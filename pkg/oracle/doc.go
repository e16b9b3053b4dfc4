// Package oracle adapts reasoning back-ends to ports.ReasoningOracle and decodes their
// structured output into tool calls or plain answers.
package oracle
