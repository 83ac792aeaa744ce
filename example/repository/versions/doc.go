// Package versions содержит скрипты репозитория примера.
package versions
