//go:build !unix

package app

import "os"

// Вне unix об изменении размера окна терминал не сообщает
func notifyResize(chan<- os.Signal) {}
